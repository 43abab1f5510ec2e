package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_EffectiveDisplayName(t *testing.T) {
	t.Parallel()

	u := User{Email: "alice@example.com"}
	assert.Equal(t, "alice@example.com", u.EffectiveDisplayName())

	u.Username = "alice"
	assert.Equal(t, "alice", u.EffectiveDisplayName())

	u.DisplayName = "Alice A."
	assert.Equal(t, "Alice A.", u.EffectiveDisplayName())
}

func TestUser_HasRole(t *testing.T) {
	t.Parallel()

	u := User{Roles: []string{"admin", "user"}}
	assert.True(t, u.HasRole("admin"))
	assert.False(t, u.HasRole("ADMIN"))
	assert.False(t, u.HasRole("ghost"))
	assert.False(t, User{}.HasRole("admin"))
}

func TestUser_IsValid(t *testing.T) {
	t.Parallel()

	valid := User{Email: "a@b.co", Username: "a", PasswordHash: "hash"}
	assert.True(t, valid.IsValid())

	for name, mutate := range map[string]func(User) User{
		"no email":            func(u User) User { u.Email = ""; return u },
		"no username":         func(u User) User { u.Username = ""; return u },
		"no hash":             func(u User) User { u.PasswordHash = ""; return u },
		"account expired":     func(u User) User { u.AccountExpired = true; return u },
		"credentials expired": func(u User) User { u.CredentialsExpired = true; return u },
	} {
		t.Run(name, func(t *testing.T) {
			assert.False(t, mutate(valid).IsValid())
		})
	}
}

func TestUser_CloneIsDeep(t *testing.T) {
	t.Parallel()

	u := User{
		ID:         "1",
		Roles:      []string{"user"},
		Attributes: map[string]string{"team": "core"},
	}
	c := u.Clone()
	c.Roles[0] = "admin"
	c.Attributes["team"] = "infra"

	assert.Equal(t, []string{"user"}, u.Roles)
	assert.Equal(t, "core", u.Attributes["team"])
}

func TestCredentialKinds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, CredentialUsernamePassword, UsernamePasswordCredentials{}.Kind())
	assert.Equal(t, CredentialEmailPassword, EmailPasswordCredentials{}.Kind())
}
