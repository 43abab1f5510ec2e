package auth

import "errors"

// Sentinel errors forming the engine's error taxonomy. Handlers translate
// these into HTTP status codes; the engine classifies every strategy,
// repository and token failure into one of them so that callers never see
// raw driver errors.
var (
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")

	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	ErrAccountDisabled    = errors.New("account is disabled")
	ErrAccountLocked      = errors.New("account is locked")
	ErrAccountExpired     = errors.New("account has expired")
	ErrCredentialsExpired = errors.New("credentials have expired")

	ErrUnsupportedAuthentication = errors.New("unsupported authentication type")

	// ErrTransientStorage marks repository or token-store failures
	// (including timeouts) that may succeed on retry.
	ErrTransientStorage = errors.New("transient storage failure")
)

// ErrorCode returns the stable machine-readable code for a taxonomy error,
// or empty when err is not part of the taxonomy.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidEmail):
		return "InvalidEmail"
	case errors.Is(err, ErrInvalidPassword):
		return "InvalidPassword"
	case errors.Is(err, ErrInvalidCredentials):
		return "InvalidCredentials"
	case errors.Is(err, ErrInvalidToken):
		return "InvalidToken"
	case errors.Is(err, ErrUserAlreadyExists):
		return "UserAlreadyExists"
	case errors.Is(err, ErrUserNotFound):
		return "UserNotFound"
	case errors.Is(err, ErrAccountDisabled):
		return "AccountDisabled"
	case errors.Is(err, ErrAccountLocked):
		return "AccountLocked"
	case errors.Is(err, ErrAccountExpired):
		return "AccountExpired"
	case errors.Is(err, ErrCredentialsExpired):
		return "CredentialsExpired"
	case errors.Is(err, ErrUnsupportedAuthentication):
		return "UnsupportedAuthentication"
	case errors.Is(err, ErrTransientStorage):
		return "TransientStorage"
	}
	return ""
}
