package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/auth"
	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/model"
)

// requestTimeout bounds every downstream call made on behalf of one HTTP
// request.
const requestTimeout = 5 * time.Second

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Engine *auth.Engine
}

func NewAuthHandler(cfg config.Config, e *auth.Engine) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Engine: e}
}

// ----- DTOs -----

type registerReq struct {
	Email    string   `json:"email"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	Roles    []string `json:"roles,omitempty"`
}
type loginReq struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}
type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type tokenResp struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
}

type errorResp struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// userResp is the public view of an account; the password hash never leaves
// the service.
type userResp struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Username    string   `json:"username"`
	Roles       []string `json:"roles"`
	Enabled     bool     `json:"enabled"`
	Locked      bool     `json:"locked"`
	DisplayName string   `json:"displayName,omitempty"`
}

// statusFor maps an engine error code onto an HTTP status:
// validation/uniqueness 400, credential/token/account-state 401, transient
// 503, unknown user 404, everything else 500.
func statusFor(code string) int {
	switch code {
	case "InvalidEmail", "InvalidPassword", "UserAlreadyExists", "UnsupportedAuthentication":
		return http.StatusBadRequest
	case "InvalidCredentials", "InvalidToken",
		"AccountDisabled", "AccountLocked", "AccountExpired", "CredentialsExpired":
		return http.StatusUnauthorized
	case "UserNotFound":
		return http.StatusNotFound
	case "TransientStorage":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func fail(c echo.Context, result auth.Result) error {
	status := statusFor(result.ErrorCode)
	return c.JSON(status, errorResp{Status: status, Error: result.ErrorCode, Message: result.Message})
}

// Register creates a user and returns an initial token pair.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResp{Status: http.StatusBadRequest, Error: "BadRequest", Message: "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	result := h.Engine.RegisterUser(ctx, auth.RegistrationRequest{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		Roles:    req.Roles,
	})
	if !result.Success {
		// Registration has no credentials to probe; a missing field is a
		// plain validation error here, not an authentication failure.
		if result.ErrorCode == "InvalidCredentials" {
			return c.JSON(http.StatusBadRequest, errorResp{Status: http.StatusBadRequest, Error: result.ErrorCode, Message: result.Message})
		}
		return fail(c, result)
	}
	return c.JSON(http.StatusOK, tokenResp{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    result.TokenType,
	})
}

// Login authenticates with a username or email plus password. All
// authentication failures answer 401 with a message that does not reveal
// whether the identifier or the password was wrong.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResp{Status: http.StatusBadRequest, Error: "BadRequest", Message: "invalid body"})
	}
	if strings.TrimSpace(req.UsernameOrEmail) == "" || req.Password == "" {
		return c.JSON(http.StatusUnauthorized, errorResp{Status: http.StatusUnauthorized, Error: "InvalidCredentials", Message: "invalid credentials"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	result := h.Engine.Authenticate(ctx, model.UsernamePasswordCredentials{
		Username: req.UsernameOrEmail,
		Password: req.Password,
	})
	if !result.Success {
		return fail(c, result)
	}
	if result.User != nil {
		h.Engine.DispatchLoginAlert(*result.User, c.RealIP(), c.Request().UserAgent())
	}
	return c.JSON(http.StatusOK, tokenResp{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    result.TokenType,
	})
}

// Refresh exchanges a live refresh token for a new access token. The same
// refresh token is echoed back; it is never rotated here.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusUnauthorized, errorResp{Status: http.StatusUnauthorized, Error: "InvalidToken", Message: "refreshToken required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	result := h.Engine.RefreshToken(ctx, strings.TrimSpace(req.RefreshToken))
	if !result.Success {
		return fail(c, result)
	}
	return c.JSON(http.StatusOK, tokenResp{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    result.TokenType,
	})
}

// Logout revokes every refresh token of the user named by the presented
// refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusUnauthorized, errorResp{Status: http.StatusUnauthorized, Error: "InvalidToken", Message: "refreshToken required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	result := h.Engine.Logout(ctx, strings.TrimSpace(req.RefreshToken))
	if !result.Success {
		return fail(c, result)
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

// ChangePassword updates the authenticated user's password and revokes all
// their refresh tokens. Requires a valid access token.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, errorResp{Status: http.StatusUnauthorized, Error: "InvalidToken", Message: "unauthorized"})
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResp{Status: http.StatusBadRequest, Error: "BadRequest", Message: "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	result := h.Engine.ChangePassword(ctx, uid, req.CurrentPassword, req.NewPassword)
	if !result.Success {
		return fail(c, result)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": result.Message})
}

// GetUser returns another user's public profile. Routed behind the admin
// role gate.
func (h *AuthHandler) GetUser(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, found := h.Engine.GetUserByID(ctx, c.Param("id"))
	if !found {
		return c.JSON(http.StatusNotFound, errorResp{Status: http.StatusNotFound, Error: "UserNotFound", Message: "user not found"})
	}
	return c.JSON(http.StatusOK, userResp{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		Roles:       u.Roles,
		Enabled:     u.Enabled,
		Locked:      u.Locked,
		DisplayName: u.DisplayName,
	})
}

// Me returns the authenticated user's identity claims.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":  c.Get("user_id"),
		"username": c.Get("username"),
		"roles":    c.Get("roles"),
	})
}
