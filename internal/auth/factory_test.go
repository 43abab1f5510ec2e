package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFactory(t *testing.T) (*Factory, *time.Time) {
	t.Helper()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	f := NewFactoryWithClock(func() time.Time { return now })
	return f, &now
}

func mustEmail(t *testing.T, raw string) Email {
	t.Helper()
	e, err := NewEmail(raw)
	require.NoError(t, err)
	return e
}

func mustPassword(t *testing.T, raw string) Password {
	t.Helper()
	p, err := NewPassword(raw)
	require.NoError(t, err)
	return p
}

func TestFactory_CreateUser(t *testing.T) {
	t.Parallel()

	f, now := testFactory(t)
	u := f.CreateUser(mustEmail(t, "alice@example.com"), "alice", mustPassword(t, "P@ssw0rd!"),
		[]string{"admin", "user", "admin", ""}, map[string]string{"team": "core"})

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "alice", u.Username)
	assert.True(t, u.Enabled)
	assert.False(t, u.Locked)
	assert.Equal(t, []string{"admin", "user"}, u.Roles, "roles deduplicated, sorted, blanks dropped")
	assert.Equal(t, "core", u.Attributes["team"])
	assert.Equal(t, *now, u.CreatedAt)
	assert.Equal(t, *now, u.UpdatedAt)

	other := f.CreateUser(mustEmail(t, "bob@example.com"), "bob", mustPassword(t, "P@ssw0rd!"), nil, nil)
	assert.NotEqual(t, u.ID, other.ID)
}

func TestFactory_MutatorsPreserveIdentityAndAdvanceUpdatedAt(t *testing.T) {
	t.Parallel()

	f, now := testFactory(t)
	u := f.CreateUser(mustEmail(t, "alice@example.com"), "alice", mustPassword(t, "P@ssw0rd!"), nil, nil)

	*now = now.Add(time.Hour)
	locked := f.LockUser(u)

	assert.Equal(t, u.ID, locked.ID)
	assert.Equal(t, u.CreatedAt, locked.CreatedAt)
	assert.True(t, locked.Locked)
	assert.True(t, locked.UpdatedAt.After(u.UpdatedAt))
	assert.False(t, u.Locked, "input record is not mutated")

	unlocked := f.UnlockUser(locked)
	assert.False(t, unlocked.Locked)
}

func TestFactory_UpdatedAtNeverMovesBackwards(t *testing.T) {
	t.Parallel()

	f, now := testFactory(t)
	u := f.CreateUser(mustEmail(t, "alice@example.com"), "alice", mustPassword(t, "P@ssw0rd!"), nil, nil)

	*now = now.Add(-time.Hour) // skewed clock
	disabled := f.DisableUser(u)
	assert.Equal(t, u.UpdatedAt, disabled.UpdatedAt)
	assert.False(t, disabled.Enabled)
}

func TestFactory_StatusTransitions(t *testing.T) {
	t.Parallel()

	f, _ := testFactory(t)
	u := f.CreateUser(mustEmail(t, "alice@example.com"), "alice", mustPassword(t, "P@ssw0rd!"), nil, nil)

	u = f.DisableUser(u)
	assert.False(t, u.Enabled)
	u = f.EnableUser(u)
	assert.True(t, u.Enabled)
	u = f.ExpireAccount(u)
	assert.True(t, u.AccountExpired)
	u = f.ExpireCredentials(u)
	assert.True(t, u.CredentialsExpired)
}

func TestFactory_Roles(t *testing.T) {
	t.Parallel()

	f, _ := testFactory(t)
	u := f.CreateUser(mustEmail(t, "alice@example.com"), "alice", mustPassword(t, "P@ssw0rd!"), []string{"user"}, nil)

	u = f.AddRole(u, "admin")
	assert.Equal(t, []string{"admin", "user"}, u.Roles)

	u = f.AddRole(u, "admin") // idempotent
	assert.Equal(t, []string{"admin", "user"}, u.Roles)

	u = f.RemoveRole(u, "user")
	assert.Equal(t, []string{"admin"}, u.Roles)

	u = f.RemoveRole(u, "ghost") // absent role is a no-op
	assert.Equal(t, []string{"admin"}, u.Roles)
}

func TestFactory_Attributes(t *testing.T) {
	t.Parallel()

	f, _ := testFactory(t)
	u := f.CreateUser(mustEmail(t, "alice@example.com"), "alice", mustPassword(t, "P@ssw0rd!"), nil, nil)

	u = f.AddAttribute(u, "theme", "dark")
	v, ok := f.GetAttribute(u, "theme")
	assert.True(t, ok)
	assert.Equal(t, "dark", v)

	u = f.UpdateAttributes(u, map[string]string{"theme": "light", "lang": "de"})
	assert.Equal(t, "light", u.Attributes["theme"])
	assert.Equal(t, "de", u.Attributes["lang"])

	u = f.RemoveAttribute(u, "theme")
	_, ok = f.GetAttribute(u, "theme")
	assert.False(t, ok)
}

func TestFactory_UpdatePasswordAndDisplayName(t *testing.T) {
	t.Parallel()

	f, _ := testFactory(t)
	u := f.CreateUser(mustEmail(t, "alice@example.com"), "alice", mustPassword(t, "P@ssw0rd!"), nil, nil)

	encoded, err := PasswordFromEncoded("$2a$10$abcdefghijklmnopqrstuv")
	require.NoError(t, err)
	u = f.UpdatePassword(u, encoded)
	assert.Equal(t, "$2a$10$abcdefghijklmnopqrstuv", u.PasswordHash)

	assert.Equal(t, "alice", u.EffectiveDisplayName())
	u = f.UpdateDisplayName(u, "Alice A.")
	assert.Equal(t, "Alice A.", u.EffectiveDisplayName())
}
