package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
)

// UsernamePasswordStrategy verifies username+password credentials. The
// identifier is first looked up as a username; if that misses and it parses
// as an email, the email index is tried next, so an identifier that is both
// a valid email and an existing username resolves to the username record.
//
// When no user is found, a comparison against a throwaway hash runs anyway
// so the response time does not reveal whether the identifier exists.
type UsernamePasswordStrategy struct {
	users   repository.UserRepository
	hasher  *Hasher
	enabled bool
	// dummyHash absorbs the bcrypt cost on the user-not-found path.
	dummyHash string
}

// NewUsernamePasswordStrategy builds the strategy. The dummy hash is
// derived from a random password at construction time.
func NewUsernamePasswordStrategy(users repository.UserRepository, hasher *Hasher) *UsernamePasswordStrategy {
	random, err := hasher.GenerateRandom(32)
	if err != nil {
		random = "fallback-dummy-password"
	}
	dummy, err := hasher.Encode(random)
	if err != nil {
		dummy = ""
	}
	return &UsernamePasswordStrategy{users: users, hasher: hasher, enabled: true, dummyHash: dummy}
}

func (s *UsernamePasswordStrategy) Kind() model.CredentialKind {
	return model.CredentialUsernamePassword
}

func (s *UsernamePasswordStrategy) Enabled() bool { return s.enabled }

// Prepare trims the username; the password is left untouched because
// leading or trailing whitespace may be intentional.
func (s *UsernamePasswordStrategy) Prepare(c model.Credentials) model.Credentials {
	cred, ok := c.(model.UsernamePasswordCredentials)
	if !ok {
		return c
	}
	cred.Username = strings.TrimSpace(cred.Username)
	return cred
}

func (s *UsernamePasswordStrategy) ValidateFormat(c model.Credentials) bool {
	cred, ok := c.(model.UsernamePasswordCredentials)
	if !ok {
		return false
	}
	return strings.TrimSpace(cred.Username) != "" && strings.TrimSpace(cred.Password) != ""
}

func (s *UsernamePasswordStrategy) Authenticate(ctx context.Context, c model.Credentials) (model.User, bool, error) {
	cred, ok := s.Prepare(c).(model.UsernamePasswordCredentials)
	if !ok || !s.ValidateFormat(cred) {
		return model.User{}, false, nil
	}

	u, found, err := s.users.FindByUsername(ctx, cred.Username)
	if err != nil {
		return model.User{}, false, fmt.Errorf("lookup by username: %w", err)
	}
	if !found {
		if email, emailErr := NewEmail(cred.Username); emailErr == nil {
			u, found, err = s.users.FindByEmail(ctx, email.Value())
			if err != nil {
				return model.User{}, false, fmt.Errorf("lookup by email: %w", err)
			}
		}
	}
	if !found {
		// Burn the same hashing cost as the found path.
		s.hasher.Matches(cred.Password, s.dummyHash)
		return model.User{}, false, nil
	}
	if !s.hasher.Matches(cred.Password, u.PasswordHash) {
		return model.User{}, false, nil
	}
	return u, true, nil
}
