package auth

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewUserID validates and trims a user identifier. Any non-blank string is
// accepted; identifiers generated by this service are UUIDs but imported
// records may carry other opaque forms.
func NewUserID(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("%w: user id cannot be blank", ErrUserNotFound)
	}
	return strings.TrimSpace(id), nil
}

// GenerateUserID returns a fresh random identifier.
func GenerateUserID() string {
	return uuid.NewString()
}
