package auth

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	passwordMinLength = 8
	passwordMaxLength = 128
)

var hexHashPattern = regexp.MustCompile(`^[A-Fa-f0-9]{64,}$`)

// Password is an immutable password value. It holds either a raw password
// that satisfied the policy (NewPassword) or an already-encoded hash
// (PasswordFromEncoded). Its string form never exposes the secret.
type Password struct {
	value string
}

// NewPassword validates the password policy and wraps the raw value:
// 8-128 characters with at least one uppercase letter, one lowercase
// letter, one digit and one non-alphanumeric character.
func NewPassword(raw string) (Password, error) {
	if strings.TrimSpace(raw) == "" {
		return Password{}, fmt.Errorf("%w: password cannot be blank", ErrInvalidPassword)
	}
	if len(raw) < passwordMinLength || len(raw) > passwordMaxLength {
		return Password{}, fmt.Errorf("%w: password must be between %d and %d characters",
			ErrInvalidPassword, passwordMinLength, passwordMaxLength)
	}
	var upper, lower, digit, special bool
	for _, r := range raw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	switch {
	case !upper:
		return Password{}, fmt.Errorf("%w: password must contain an uppercase letter", ErrInvalidPassword)
	case !lower:
		return Password{}, fmt.Errorf("%w: password must contain a lowercase letter", ErrInvalidPassword)
	case !digit:
		return Password{}, fmt.Errorf("%w: password must contain a digit", ErrInvalidPassword)
	case !special:
		return Password{}, fmt.Errorf("%w: password must contain a special character", ErrInvalidPassword)
	}
	return Password{value: raw}, nil
}

// PasswordFromEncoded wraps an already-encoded hash. Only blankness is
// checked; the policy does not apply to encoded forms.
func PasswordFromEncoded(encoded string) (Password, error) {
	if strings.TrimSpace(encoded) == "" {
		return Password{}, fmt.Errorf("%w: encoded password cannot be blank", ErrInvalidPassword)
	}
	return Password{value: encoded}, nil
}

// Value returns the wrapped string. Callers must not log it.
func (p Password) Value() string { return p.value }

// IsEncoded reports whether the value looks like a known hash form: bcrypt,
// argon2, scrypt, or a hex digest of at least 64 characters.
func (p Password) IsEncoded() bool {
	return strings.HasPrefix(p.value, "$2a$") ||
		strings.HasPrefix(p.value, "$2b$") ||
		strings.HasPrefix(p.value, "$2y$") ||
		strings.HasPrefix(p.value, "$argon2") ||
		strings.HasPrefix(p.value, "$scrypt$") ||
		hexHashPattern.MatchString(p.value)
}

// String returns a fixed placeholder so the secret never leaks through
// logging or %v formatting.
func (p Password) String() string { return "[PROTECTED]" }

// GoString keeps %#v output redacted as well.
func (p Password) GoString() string { return "auth.Password{[PROTECTED]}" }
