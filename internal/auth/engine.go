package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/notify"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/token"
)

// lastLoginAttribute is recorded (asynchronously) on every successful
// authentication.
const lastLoginAttribute = "lastLogin"

// RegistrationRequest carries the input of RegisterUser.
type RegistrationRequest struct {
	Email      string
	Username   string
	Password   string
	Roles      []string
	Attributes map[string]string
}

// Result is the engine's uniform response envelope. ErrorCode is a stable
// machine-readable kind from the error taxonomy; Message is safe to show to
// clients and never distinguishes an unknown identifier from a bad
// password.
type Result struct {
	Success      bool
	User         *model.User
	AccessToken  string
	RefreshToken string
	TokenType    string
	Message      string
	ErrorCode    string
}

// Engine orchestrates registration, authentication and the token
// lifecycle. It is stateless between calls; all state lives in the
// configured collaborators, which must be safe for concurrent use.
type Engine struct {
	users      repository.UserRepository
	strategies *StrategyRegistry
	tokens     *token.Service
	hasher     *Hasher
	notifier   notify.Notifier
	factory    *Factory

	// asyncTimeout bounds background work (lastLogin updates,
	// notification dispatch) spawned outside the request context.
	asyncTimeout time.Duration
	wg           sync.WaitGroup
}

// NewEngine wires the engine.
func NewEngine(users repository.UserRepository, strategies *StrategyRegistry, tokens *token.Service, hasher *Hasher, notifier notify.Notifier, factory *Factory) *Engine {
	return &Engine{
		users:        users,
		strategies:   strategies,
		tokens:       tokens,
		hasher:       hasher,
		notifier:     notifier,
		factory:      factory,
		asyncTimeout: 5 * time.Second,
	}
}

// Wait blocks until all background dispatches have finished. Called during
// shutdown, and by tests that assert on async side effects.
func (e *Engine) Wait() { e.wg.Wait() }

// dispatch runs fn on its own goroutine with a fresh bounded context, so
// background work survives the originating request.
func (e *Engine) dispatch(fn func(ctx context.Context)) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.asyncTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// classify maps any collaborator failure into the error taxonomy. Taxonomy
// errors pass through unchanged; repository sentinels are translated;
// everything else (driver errors, timeouts) becomes TransientStorage.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if ErrorCode(err) != "" {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrUserAlreadyExists):
		return ErrUserAlreadyExists
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	default:
		return fmt.Errorf("%w: %v", ErrTransientStorage, err)
	}
}

func failure(err error) Result {
	err = classify(err)
	return Result{Success: false, Message: err.Error(), ErrorCode: ErrorCode(err)}
}

// RegisterUser validates the request, creates the user and mints an initial
// token pair. The repository decides identifier uniqueness atomically, so
// of two concurrent registrations for the same email or username exactly
// one succeeds. The welcome notification is dispatched outside the
// registration's transactional boundary and cannot fail the call.
func (e *Engine) RegisterUser(ctx context.Context, req RegistrationRequest) Result {
	if strings.TrimSpace(req.Email) == "" {
		return failure(fmt.Errorf("%w: email is required", ErrInvalidEmail))
	}
	if strings.TrimSpace(req.Username) == "" {
		return failure(fmt.Errorf("%w: username is required", ErrInvalidCredentials))
	}
	if strings.TrimSpace(req.Password) == "" {
		return failure(fmt.Errorf("%w: password is required", ErrInvalidPassword))
	}

	email, err := NewEmail(req.Email)
	if err != nil {
		return failure(err)
	}
	username := strings.TrimSpace(req.Username)

	// Early exits for taken identifiers; the Save below remains the
	// authoritative decision under concurrency.
	if taken, err := e.users.ExistsByEmail(ctx, email.Value()); err != nil {
		return failure(err)
	} else if taken {
		return failure(fmt.Errorf("%w: email is already registered", ErrUserAlreadyExists))
	}
	if taken, err := e.users.ExistsByUsername(ctx, username); err != nil {
		return failure(err)
	} else if taken {
		return failure(fmt.Errorf("%w: username is already registered", ErrUserAlreadyExists))
	}

	password, err := NewPassword(req.Password)
	if err != nil {
		return failure(err)
	}
	hash, err := e.hasher.Encode(password.Value())
	if err != nil {
		return failure(err)
	}
	encoded, err := PasswordFromEncoded(hash)
	if err != nil {
		return failure(err)
	}

	user := e.factory.CreateUser(email, username, encoded, req.Roles, req.Attributes)
	saved, err := e.users.Save(ctx, user)
	if err != nil {
		return failure(err)
	}

	access, err := e.tokens.GenerateAccessToken(saved)
	if err != nil {
		return failure(err)
	}
	refresh, err := e.tokens.GenerateRefreshToken(ctx, saved)
	if err != nil {
		return failure(err)
	}

	e.dispatch(func(ctx context.Context) {
		if err := e.notifier.SendWelcome(ctx, saved); err != nil {
			log.Printf("auth: welcome notification for %s failed: %v", saved.Email, err)
		}
	})

	log.Printf("auth: user registered id=%s username=%s", saved.ID, saved.Username)
	return Result{
		Success:      true,
		User:         &saved,
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    e.tokens.TokenType(),
		Message:      "user registered successfully",
	}
}

// Authenticate verifies credentials through the strategy registry, gates on
// account status, and mints a token pair. The lastLogin attribute is
// recorded asynchronously so a slow repository write cannot delay the
// response.
func (e *Engine) Authenticate(ctx context.Context, creds model.Credentials) Result {
	strategy, ok := e.strategies.Select(creds.Kind())
	if !ok {
		return failure(fmt.Errorf("%w: no strategy for credentials of kind %q",
			ErrUnsupportedAuthentication, creds.Kind()))
	}

	user, ok, err := strategy.Authenticate(ctx, creds)
	if err != nil {
		return failure(err)
	}
	if !ok {
		return failure(ErrInvalidCredentials)
	}

	// Status gate; order matters: enabled, locked, account expiry,
	// credential expiry.
	switch {
	case !user.Enabled:
		return failure(ErrAccountDisabled)
	case user.Locked:
		return failure(ErrAccountLocked)
	case user.AccountExpired:
		return failure(ErrAccountExpired)
	case user.CredentialsExpired:
		return failure(ErrCredentialsExpired)
	}

	access, err := e.tokens.GenerateAccessToken(user)
	if err != nil {
		return failure(err)
	}
	refresh, err := e.tokens.GenerateRefreshToken(ctx, user)
	if err != nil {
		return failure(err)
	}

	e.dispatch(func(ctx context.Context) {
		updated := e.factory.AddAttribute(user, lastLoginAttribute, time.Now().UTC().Format(time.RFC3339))
		if _, err := e.users.Update(ctx, updated); err != nil {
			log.Printf("auth: recording lastLogin for %s failed: %v", user.Username, err)
		}
	})

	log.Printf("auth: user authenticated username=%s", user.Username)
	return Result{
		Success:      true,
		User:         &user,
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    e.tokens.TokenType(),
		Message:      "authentication successful",
	}
}

// DispatchLoginAlert sends the new-login notification with the request
// metadata. Best-effort, never blocks the caller.
func (e *Engine) DispatchLoginAlert(u model.User, ipAddress, userAgent string) {
	e.dispatch(func(ctx context.Context) {
		if err := e.notifier.SendLoginAlert(ctx, u, ipAddress, userAgent); err != nil {
			log.Printf("auth: login notification for %s failed: %v", u.Email, err)
		}
	})
}

// RefreshToken exchanges a live refresh token for a new access token. The
// refresh token is not rotated; explicit revocation is the only way to
// invalidate it early.
func (e *Engine) RefreshToken(ctx context.Context, refreshToken string) Result {
	revoked, err := e.tokens.IsRefreshTokenRevoked(ctx, refreshToken)
	if err != nil {
		return failure(err)
	}
	if revoked {
		return failure(fmt.Errorf("%w: refresh token has been revoked", ErrInvalidToken))
	}
	if !e.tokens.IsTokenValidAndNotExpired(ctx, refreshToken) {
		return failure(fmt.Errorf("%w: refresh token is invalid or expired", ErrInvalidToken))
	}
	access, ok := e.tokens.RefreshAccessToken(ctx, refreshToken)
	if !ok {
		return failure(fmt.Errorf("%w: failed to refresh access token", ErrInvalidToken))
	}
	return Result{
		Success:      true,
		AccessToken:  access,
		RefreshToken: refreshToken,
		TokenType:    e.tokens.TokenType(),
		Message:      "token refreshed successfully",
	}
}

// Logout revokes every refresh token of the user named by the given token.
// A token that is unusable — malformed, without a subject, or already
// revoked — yields an InvalidToken failure without side effects, so repeated
// logouts are safe.
func (e *Engine) Logout(ctx context.Context, refreshToken string) Result {
	revoked, err := e.tokens.IsRefreshTokenRevoked(ctx, refreshToken)
	if err != nil {
		return failure(err)
	}
	if revoked {
		return failure(fmt.Errorf("%w: invalid refresh token", ErrInvalidToken))
	}
	uid, ok := e.tokens.ExtractUserID(refreshToken)
	if !ok {
		return failure(fmt.Errorf("%w: invalid refresh token", ErrInvalidToken))
	}
	if err := e.tokens.RevokeAllTokensForUser(ctx, uid); err != nil {
		return failure(err)
	}
	log.Printf("auth: user logged out id=%s", uid)
	return Result{Success: true, Message: "user logged out successfully"}
}

// ChangePassword verifies the current password, applies the policy to the
// new one, updates the stored hash and revokes every outstanding refresh
// token, forcing re-authentication everywhere.
func (e *Engine) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) Result {
	uid, err := NewUserID(userID)
	if err != nil {
		return failure(err)
	}
	user, found, err := e.users.FindByID(ctx, uid)
	if err != nil {
		return failure(err)
	}
	if !found {
		return failure(ErrUserNotFound)
	}
	if !e.hasher.Matches(currentPassword, user.PasswordHash) {
		return failure(fmt.Errorf("%w: current password is incorrect", ErrInvalidCredentials))
	}
	password, err := NewPassword(newPassword)
	if err != nil {
		return failure(err)
	}
	hash, err := e.hasher.Encode(password.Value())
	if err != nil {
		return failure(err)
	}
	encoded, err := PasswordFromEncoded(hash)
	if err != nil {
		return failure(err)
	}
	updated := e.factory.UpdatePassword(user, encoded)
	if _, err := e.users.Update(ctx, updated); err != nil {
		return failure(err)
	}
	if err := e.tokens.RevokeAllTokensForUser(ctx, uid); err != nil {
		return failure(err)
	}

	e.dispatch(func(ctx context.Context) {
		if err := e.notifier.SendPasswordChange(ctx, updated); err != nil {
			log.Printf("auth: password-change notification for %s failed: %v", updated.Email, err)
		}
	})

	log.Printf("auth: password changed id=%s", uid)
	return Result{Success: true, Message: "password changed successfully"}
}

// ValidateToken resolves a valid, unexpired token to its user. Returns
// false for any parse, expiry, revocation or lookup failure.
func (e *Engine) ValidateToken(ctx context.Context, t string) (model.User, bool) {
	if !e.tokens.IsTokenValidAndNotExpired(ctx, t) {
		return model.User{}, false
	}
	uid, ok := e.tokens.ExtractUserID(t)
	if !ok {
		return model.User{}, false
	}
	user, found, err := e.users.FindByID(ctx, uid)
	if err != nil || !found {
		return model.User{}, false
	}
	return user, true
}

// GetUserByID looks a user up by identifier.
func (e *Engine) GetUserByID(ctx context.Context, id string) (model.User, bool) {
	uid, err := NewUserID(id)
	if err != nil {
		return model.User{}, false
	}
	u, found, err := e.users.FindByID(ctx, uid)
	if err != nil {
		return model.User{}, false
	}
	return u, found
}

// GetUserByEmail looks a user up by normalized email.
func (e *Engine) GetUserByEmail(ctx context.Context, email string) (model.User, bool) {
	em, err := NewEmail(email)
	if err != nil {
		return model.User{}, false
	}
	u, found, err := e.users.FindByEmail(ctx, em.Value())
	if err != nil {
		return model.User{}, false
	}
	return u, found
}

// GetUserByUsername looks a user up by username.
func (e *Engine) GetUserByUsername(ctx context.Context, username string) (model.User, bool) {
	u, found, err := e.users.FindByUsername(ctx, username)
	if err != nil {
		return model.User{}, false
	}
	return u, found
}
