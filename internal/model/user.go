// Package model defines the domain records shared across the service.
package model

import "time"

// User is the account record handled by the auth engine. It is
// value-semantic: mutations go through the factory in internal/auth, which
// returns a fresh copy instead of modifying the receiver. Roles carries set
// semantics (no duplicates); Attributes is an opaque string map used for
// auxiliary data such as the lastLogin timestamp.
//
// Fields:
//  ID                 – opaque identifier, immutable once assigned.
//  Email              – normalized (trimmed, lowercased) unique address.
//  Username           – trimmed unique handle.
//  PasswordHash       – encoded password; never the raw secret.
//  Roles              – set of role names propagated into access tokens.
//  Enabled            – account can authenticate (default true).
//  Locked             – account blocked by an operator.
//  AccountExpired     – account lifetime elapsed.
//  CredentialsExpired – password must be rotated before use.
//  CreatedAt          – UTC creation timestamp.
//  UpdatedAt          – UTC timestamp of the last mutation; never before CreatedAt.
//  Attributes         – auxiliary key/value data.
//  DisplayName        – optional presentation name.
type User struct {
	ID                 string
	Email              string
	Username           string
	PasswordHash       string
	Roles              []string
	Enabled            bool
	Locked             bool
	AccountExpired     bool
	CredentialsExpired bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Attributes         map[string]string
	DisplayName        string
}

// EffectiveDisplayName resolves the name shown to the user: the explicit
// display name when set, otherwise the username, otherwise the email.
func (u User) EffectiveDisplayName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// HasRole reports whether the user carries the given role.
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsValid reports whether the record satisfies the domain invariants: email
// and username present, a password hash set, and neither the account nor the
// credentials expired.
func (u User) IsValid() bool {
	return u.Email != "" && u.Username != "" && u.PasswordHash != "" &&
		!u.AccountExpired && !u.CredentialsExpired
}

// Clone returns a deep copy so that factory mutations never alias the
// original's roles or attributes.
func (u User) Clone() User {
	c := u
	if u.Roles != nil {
		c.Roles = make([]string, len(u.Roles))
		copy(c.Roles, u.Roles)
	}
	if u.Attributes != nil {
		c.Attributes = make(map[string]string, len(u.Attributes))
		for k, v := range u.Attributes {
			c.Attributes[k] = v
		}
	}
	return c
}
