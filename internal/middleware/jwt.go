// Package middleware contains reusable HTTP middleware functions.
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/token"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the token's subject, username and roles claims into the
// request context. Protected handlers read them via c.Get("user_id"),
// c.Get("username") and c.Get("roles").
func JWTAuth(tokens *token.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			if !tokens.IsTokenSignatureValid(raw) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			exp, ok := tokens.GetExpirationTime(raw)
			if !ok || !exp.After(time.Now().UTC()) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired"})
			}
			// Only access tokens grant API access; a refresh token in the
			// Authorization header is rejected.
			if typ, _ := tokens.ExtractClaim(raw, "typ"); typ != token.TypeAccess {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			uid, ok := tokens.ExtractUserID(raw)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			c.Set("user_id", uid)
			if username, ok := tokens.ExtractUsername(raw); ok {
				c.Set("username", username)
			}
			if roles, ok := tokens.ExtractRoles(raw); ok {
				c.Set("roles", roles)
			}
			return next(c)
		}
	}
}
