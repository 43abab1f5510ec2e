package auth

import (
	"fmt"
	"regexp"
	"strings"
)

// emailPattern accepts the common mailbox@domain.tld shape with a 2-7 letter
// top-level domain. Normalization happens before matching, so the pattern
// only needs to cover lowercase input.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_+&*-]+(?:\.[a-zA-Z0-9_+&*-]+)*@(?:[a-zA-Z0-9-]+\.)+[a-zA-Z]{2,7}$`)

// Email is an immutable, validated email address. The zero value is invalid;
// construct through NewEmail.
type Email struct {
	value string
}

// NewEmail trims and lowercases raw, validates the format and returns the
// value object. Returns ErrInvalidEmail on blank input or format mismatch.
func NewEmail(raw string) (Email, error) {
	if strings.TrimSpace(raw) == "" {
		return Email{}, fmt.Errorf("%w: email cannot be blank", ErrInvalidEmail)
	}
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if !emailPattern.MatchString(normalized) {
		return Email{}, fmt.Errorf("%w: %q", ErrInvalidEmail, raw)
	}
	return Email{value: normalized}, nil
}

// Value returns the normalized address.
func (e Email) Value() string { return e.value }

// LocalPart returns the part before the '@'.
func (e Email) LocalPart() string {
	at := strings.IndexByte(e.value, '@')
	if at < 1 {
		return ""
	}
	return e.value[:at]
}

// Domain returns the part after the '@'.
func (e Email) Domain() string {
	at := strings.IndexByte(e.value, '@')
	if at < 0 || at == len(e.value)-1 {
		return ""
	}
	return e.value[at+1:]
}

func (e Email) String() string { return e.value }
