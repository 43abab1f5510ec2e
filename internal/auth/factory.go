package auth

import (
	"sort"
	"time"

	"github.com/iliyamo/auth-service/internal/model"
)

// Factory builds and mutates user records. Every mutator copies its input,
// preserves ID and CreatedAt, and advances UpdatedAt, keeping records
// value-semantic. The clock is injectable for tests.
type Factory struct {
	now func() time.Time
}

// NewFactory returns a factory using the wall clock (UTC).
func NewFactory() *Factory {
	return &Factory{now: func() time.Time { return time.Now().UTC() }}
}

// NewFactoryWithClock returns a factory with a custom clock.
func NewFactoryWithClock(now func() time.Time) *Factory {
	return &Factory{now: now}
}

// CreateUser assembles a new enabled user record with a generated ID.
func (f *Factory) CreateUser(email Email, username string, password Password, roles []string, attributes map[string]string) model.User {
	now := f.now()
	u := model.User{
		ID:           GenerateUserID(),
		Email:        email.Value(),
		Username:     username,
		PasswordHash: password.Value(),
		Roles:        normalizeRoles(roles),
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
		Attributes:   map[string]string{},
	}
	for k, v := range attributes {
		u.Attributes[k] = v
	}
	return u
}

func (f *Factory) touch(u model.User) model.User {
	c := u.Clone()
	now := f.now()
	// UpdatedAt never moves backwards even with a skewed clock.
	if now.After(c.UpdatedAt) {
		c.UpdatedAt = now
	}
	return c
}

// UpdatePassword replaces the stored hash.
func (f *Factory) UpdatePassword(u model.User, encoded Password) model.User {
	c := f.touch(u)
	c.PasswordHash = encoded.Value()
	return c
}

// EnableUser marks the account usable.
func (f *Factory) EnableUser(u model.User) model.User {
	c := f.touch(u)
	c.Enabled = true
	return c
}

// DisableUser marks the account unusable.
func (f *Factory) DisableUser(u model.User) model.User {
	c := f.touch(u)
	c.Enabled = false
	return c
}

// LockUser blocks authentication for the account.
func (f *Factory) LockUser(u model.User) model.User {
	c := f.touch(u)
	c.Locked = true
	return c
}

// UnlockUser removes the lock.
func (f *Factory) UnlockUser(u model.User) model.User {
	c := f.touch(u)
	c.Locked = false
	return c
}

// ExpireAccount marks the account expired.
func (f *Factory) ExpireAccount(u model.User) model.User {
	c := f.touch(u)
	c.AccountExpired = true
	return c
}

// ExpireCredentials forces a password rotation on next use.
func (f *Factory) ExpireCredentials(u model.User) model.User {
	c := f.touch(u)
	c.CredentialsExpired = true
	return c
}

// AddRole adds a role, keeping set semantics.
func (f *Factory) AddRole(u model.User, role string) model.User {
	c := f.touch(u)
	if !c.HasRole(role) {
		c.Roles = normalizeRoles(append(c.Roles, role))
	}
	return c
}

// RemoveRole drops a role if present.
func (f *Factory) RemoveRole(u model.User, role string) model.User {
	c := f.touch(u)
	out := c.Roles[:0]
	for _, r := range c.Roles {
		if r != role {
			out = append(out, r)
		}
	}
	c.Roles = out
	return c
}

// AddAttribute sets a single attribute.
func (f *Factory) AddAttribute(u model.User, key, value string) model.User {
	c := f.touch(u)
	if c.Attributes == nil {
		c.Attributes = map[string]string{}
	}
	c.Attributes[key] = value
	return c
}

// RemoveAttribute deletes a single attribute.
func (f *Factory) RemoveAttribute(u model.User, key string) model.User {
	c := f.touch(u)
	delete(c.Attributes, key)
	return c
}

// UpdateAttributes merges the given attributes over the existing ones.
func (f *Factory) UpdateAttributes(u model.User, attributes map[string]string) model.User {
	c := f.touch(u)
	if c.Attributes == nil {
		c.Attributes = map[string]string{}
	}
	for k, v := range attributes {
		c.Attributes[k] = v
	}
	return c
}

// UpdateDisplayName sets the presentation name.
func (f *Factory) UpdateDisplayName(u model.User, displayName string) model.User {
	c := f.touch(u)
	c.DisplayName = displayName
	return c
}

// GetAttribute reads an attribute; ok is false when absent.
func (f *Factory) GetAttribute(u model.User, key string) (string, bool) {
	v, ok := u.Attributes[key]
	return v, ok
}

// normalizeRoles deduplicates and sorts so that role sets compare equal
// regardless of input order.
func normalizeRoles(roles []string) []string {
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
