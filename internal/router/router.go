// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/handler"
	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/token"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance. Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication and token endpoints. The path
// layout comes from configuration; defaults are /api/auth/{register,login,
// logout} and /api/token/refresh. Register, login, logout and refresh are
// unauthenticated (logout and refresh authenticate through the refresh
// token in the body); password change and /me require a valid access token,
// and the user lookup additionally requires the admin role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, tokens *token.Service) {
	cfg := a.Cfg

	g := e.Group(cfg.AuthBasePath)
	g.POST(cfg.RegisterPath, a.Register)
	g.POST(cfg.LoginPath, a.Login)
	g.POST(cfg.LogoutPath, a.Logout)

	t := e.Group(cfg.TokenBasePath)
	t.POST(cfg.RefreshPath, a.Refresh)

	protected := e.Group(cfg.AuthBasePath)
	protected.Use(middleware.JWTAuth(tokens))
	protected.POST("/password", a.ChangePassword)
	protected.GET("/me", a.Me)
	protected.GET("/users/:id", a.GetUser, middleware.RequireRole("admin"))
}
