package auth

import (
	"context"

	"github.com/iliyamo/auth-service/internal/model"
)

// Strategy verifies one credential shape. Strategies report the credential
// kind they accept and are selected from a registry without reflection.
// Authenticate returns ok=false for any verification failure — including an
// unknown identifier — so callers cannot distinguish "no such user" from
// "wrong password".
type Strategy interface {
	Kind() model.CredentialKind
	Enabled() bool
	Prepare(c model.Credentials) model.Credentials
	ValidateFormat(c model.Credentials) bool
	Authenticate(ctx context.Context, c model.Credentials) (model.User, bool, error)
}

// StrategyRegistry holds strategies in registration order. The engine picks
// the first enabled strategy whose kind matches the credentials.
type StrategyRegistry struct {
	strategies []Strategy
}

// NewStrategyRegistry builds a registry from the given strategies.
func NewStrategyRegistry(strategies ...Strategy) *StrategyRegistry {
	return &StrategyRegistry{strategies: strategies}
}

// Register appends a strategy.
func (r *StrategyRegistry) Register(s Strategy) {
	r.strategies = append(r.strategies, s)
}

// Select returns the first enabled strategy accepting the credential kind.
func (r *StrategyRegistry) Select(kind model.CredentialKind) (Strategy, bool) {
	for _, s := range r.strategies {
		if s.Kind() == kind && s.Enabled() {
			return s, true
		}
	}
	return nil, false
}
