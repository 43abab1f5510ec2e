package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
)

// EmailPasswordStrategy verifies email+password credentials. Unlike the
// username strategy it requires a well-formed email and only consults the
// email index.
type EmailPasswordStrategy struct {
	users     repository.UserRepository
	hasher    *Hasher
	enabled   bool
	dummyHash string
}

// NewEmailPasswordStrategy builds the strategy.
func NewEmailPasswordStrategy(users repository.UserRepository, hasher *Hasher) *EmailPasswordStrategy {
	random, err := hasher.GenerateRandom(32)
	if err != nil {
		random = "fallback-dummy-password"
	}
	dummy, err := hasher.Encode(random)
	if err != nil {
		dummy = ""
	}
	return &EmailPasswordStrategy{users: users, hasher: hasher, enabled: true, dummyHash: dummy}
}

func (s *EmailPasswordStrategy) Kind() model.CredentialKind {
	return model.CredentialEmailPassword
}

func (s *EmailPasswordStrategy) Enabled() bool { return s.enabled }

func (s *EmailPasswordStrategy) Prepare(c model.Credentials) model.Credentials {
	cred, ok := c.(model.EmailPasswordCredentials)
	if !ok {
		return c
	}
	cred.Email = strings.TrimSpace(cred.Email)
	return cred
}

func (s *EmailPasswordStrategy) ValidateFormat(c model.Credentials) bool {
	cred, ok := c.(model.EmailPasswordCredentials)
	if !ok {
		return false
	}
	return strings.TrimSpace(cred.Email) != "" && strings.TrimSpace(cred.Password) != ""
}

func (s *EmailPasswordStrategy) Authenticate(ctx context.Context, c model.Credentials) (model.User, bool, error) {
	cred, ok := s.Prepare(c).(model.EmailPasswordCredentials)
	if !ok || !s.ValidateFormat(cred) {
		return model.User{}, false, nil
	}
	email, err := NewEmail(cred.Email)
	if err != nil {
		s.hasher.Matches(cred.Password, s.dummyHash)
		return model.User{}, false, nil
	}
	u, found, err := s.users.FindByEmail(ctx, email.Value())
	if err != nil {
		return model.User{}, false, fmt.Errorf("lookup by email: %w", err)
	}
	if !found {
		s.hasher.Matches(cred.Password, s.dummyHash)
		return model.User{}, false, nil
	}
	if !s.hasher.Matches(cred.Password, u.PasswordHash) {
		return model.User{}, false, nil
	}
	return u, true, nil
}
