package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/token"
)

// recordingNotifier counts deliveries so tests can assert on async dispatch.
type recordingNotifier struct {
	mu              sync.Mutex
	welcomes        int
	passwordChanges int
	loginAlerts     int
	lastRecipient   string
}

func (n *recordingNotifier) SendWelcome(ctx context.Context, u model.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomes++
	n.lastRecipient = u.Email
	return nil
}

func (n *recordingNotifier) SendPasswordChange(ctx context.Context, u model.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.passwordChanges++
	n.lastRecipient = u.Email
	return nil
}

func (n *recordingNotifier) SendPasswordReset(ctx context.Context, u model.User, temporaryPassword string) error {
	return nil
}

func (n *recordingNotifier) SendLoginAlert(ctx context.Context, u model.User, ipAddress, userAgent string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.loginAlerts++
	return nil
}

func (n *recordingNotifier) SendSecurityAlert(ctx context.Context, u model.User, alertType, details string) error {
	return nil
}

func (n *recordingNotifier) SendAccountStatus(ctx context.Context, u model.User, status string) error {
	return nil
}

func (n *recordingNotifier) counts() (welcomes, passwordChanges, loginAlerts int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.welcomes, n.passwordChanges, n.loginAlerts
}

type engineFixture struct {
	engine   *Engine
	users    *repository.MemoryUserRepo
	tokens   *token.Service
	notifier *recordingNotifier
	factory  *Factory
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	users := repository.NewMemoryUserRepo()
	store := token.NewMemoryStore()
	tokens := token.NewService("0123456789abcdef0123456789abcdef", 15*time.Minute, 7*24*time.Hour, "Bearer", store)
	hasher := NewHasher(bcrypt.MinCost)
	factory := NewFactory()
	notifier := &recordingNotifier{}
	strategies := NewStrategyRegistry(
		NewUsernamePasswordStrategy(users, hasher),
		NewEmailPasswordStrategy(users, hasher),
	)
	engine := NewEngine(users, strategies, tokens, hasher, notifier, factory)
	return &engineFixture{engine: engine, users: users, tokens: tokens, notifier: notifier, factory: factory}
}

func (f *engineFixture) register(t *testing.T, email, username, password string) Result {
	t.Helper()
	res := f.engine.RegisterUser(context.Background(), RegistrationRequest{
		Email:    email,
		Username: username,
		Password: password,
		Roles:    []string{"user"},
	})
	require.True(t, res.Success, "registration failed: %s", res.Message)
	return res
}

func (f *engineFixture) login(t *testing.T, identifier, password string) Result {
	t.Helper()
	return f.engine.Authenticate(context.Background(),
		model.UsernamePasswordCredentials{Username: identifier, Password: password})
}

func TestEngine_RegisterUser(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	res := f.register(t, "Alice@Example.com", "alice", "P@ssw0rd!")

	require.NotNil(t, res.User)
	assert.Equal(t, "alice@example.com", res.User.Email, "email stored normalized")
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.NotEqual(t, "P@ssw0rd!", res.User.PasswordHash)

	stored, found, err := f.users.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, stored.Enabled)

	f.engine.Wait()
	welcomes, _, _ := f.notifier.counts()
	assert.Equal(t, 1, welcomes)
	assert.Equal(t, "alice@example.com", f.notifier.lastRecipient)
}

func TestEngine_RegisterUser_Validation(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  RegistrationRequest
		code string
	}{
		{"blank email", RegistrationRequest{Username: "a", Password: "P@ssw0rd!"}, "InvalidEmail"},
		{"malformed email", RegistrationRequest{Email: "nope", Username: "a", Password: "P@ssw0rd!"}, "InvalidEmail"},
		{"blank username", RegistrationRequest{Email: "a@b.co", Password: "P@ssw0rd!"}, "InvalidCredentials"},
		{"blank password", RegistrationRequest{Email: "a@b.co", Username: "a"}, "InvalidPassword"},
		{"weak password", RegistrationRequest{Email: "a@b.co", Username: "a", Password: "weak"}, "InvalidPassword"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := f.engine.RegisterUser(ctx, tc.req)
			assert.False(t, res.Success)
			assert.Equal(t, tc.code, res.ErrorCode)
		})
	}
}

func TestEngine_RegisterUser_DuplicateIdentifiers(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	f.register(t, "alice@example.com", "alice", "P@ssw0rd!")
	ctx := context.Background()

	res := f.engine.RegisterUser(ctx, RegistrationRequest{
		Email: "alice@example.com", Username: "other", Password: "P@ssw0rd!",
	})
	assert.False(t, res.Success)
	assert.Equal(t, "UserAlreadyExists", res.ErrorCode)

	res = f.engine.RegisterUser(ctx, RegistrationRequest{
		Email: "other@example.com", Username: "alice", Password: "P@ssw0rd!",
	})
	assert.False(t, res.Success)
	assert.Equal(t, "UserAlreadyExists", res.ErrorCode)

	// Case differences in the email do not evade uniqueness.
	res = f.engine.RegisterUser(ctx, RegistrationRequest{
		Email: "ALICE@EXAMPLE.COM", Username: "third", Password: "P@ssw0rd!",
	})
	assert.False(t, res.Success)
	assert.Equal(t, "UserAlreadyExists", res.ErrorCode)
}

func TestEngine_ConcurrentRegistrationSameEmail(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]Result, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.engine.RegisterUser(ctx, RegistrationRequest{
				Email:    "alice@example.com",
				Username: fmt.Sprintf("racer-%d", i),
				Password: "P@ssw0rd!",
			})
		}(i)
	}
	wg.Wait()
	f.engine.Wait()

	var successes int
	for _, res := range results {
		if res.Success {
			successes++
		} else {
			assert.Equal(t, "UserAlreadyExists", res.ErrorCode)
		}
	}
	assert.Equal(t, 1, successes, "the repository decides the race: exactly one winner")

	count, err := f.users.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestEngine_Authenticate(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	f.register(t, "alice@example.com", "alice", "P@ssw0rd!")

	res := f.login(t, "alice", "P@ssw0rd!")
	require.True(t, res.Success, res.Message)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)

	// Email works as the login identifier too.
	res = f.login(t, "alice@example.com", "P@ssw0rd!")
	assert.True(t, res.Success)

	// lastLogin is recorded asynchronously.
	f.engine.Wait()
	u, found, err := f.users.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.True(t, found)
	stamp, ok := u.Attributes["lastLogin"]
	require.True(t, ok)
	_, err = time.Parse(time.RFC3339, stamp)
	assert.NoError(t, err)
}

func TestEngine_Authenticate_Failures(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	f.register(t, "alice@example.com", "alice", "P@ssw0rd!")

	// Wrong password and unknown user produce the same code and message.
	wrongPass := f.login(t, "alice", "wrong-password")
	unknown := f.login(t, "nobody", "P@ssw0rd!")
	assert.False(t, wrongPass.Success)
	assert.False(t, unknown.Success)
	assert.Equal(t, "InvalidCredentials", wrongPass.ErrorCode)
	assert.Equal(t, wrongPass.Message, unknown.Message)
	assert.NotContains(t, wrongPass.Message, "alice")

	// Unsupported credential kind.
	res := f.engine.Authenticate(context.Background(), fakeCredentials{})
	assert.False(t, res.Success)
	assert.Equal(t, "UnsupportedAuthentication", res.ErrorCode)
}

type fakeCredentials struct{}

func (fakeCredentials) Kind() model.CredentialKind { return "api-key" }

func TestEngine_Authenticate_StatusGate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cases := []struct {
		name   string
		mutate func(f *Factory, u model.User) model.User
		code   string
	}{
		{"disabled", func(f *Factory, u model.User) model.User { return f.DisableUser(u) }, "AccountDisabled"},
		{"locked", func(f *Factory, u model.User) model.User { return f.LockUser(u) }, "AccountLocked"},
		{"account expired", func(f *Factory, u model.User) model.User { return f.ExpireAccount(u) }, "AccountExpired"},
		{"credentials expired", func(f *Factory, u model.User) model.User { return f.ExpireCredentials(u) }, "CredentialsExpired"},
		{"disabled wins over locked", func(f *Factory, u model.User) model.User {
			return f.LockUser(f.DisableUser(u))
		}, "AccountDisabled"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fix := newEngineFixture(t)
			reg := fix.register(t, "alice@example.com", "alice", "P@ssw0rd!")
			updated := tc.mutate(fix.factory, *reg.User)
			_, err := fix.users.Update(ctx, updated)
			require.NoError(t, err)

			res := fix.login(t, "alice", "P@ssw0rd!")
			assert.False(t, res.Success)
			assert.Equal(t, tc.code, res.ErrorCode)
			assert.Empty(t, res.AccessToken)
		})
	}
}

func TestEngine_RefreshToken(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	f.register(t, "alice@example.com", "alice", "P@ssw0rd!")
	login := f.login(t, "alice", "P@ssw0rd!")
	require.True(t, login.Success)
	ctx := context.Background()

	res := f.engine.RefreshToken(ctx, login.RefreshToken)
	require.True(t, res.Success, res.Message)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, login.RefreshToken, res.RefreshToken, "refresh token is not rotated")

	// The new access token carries the same identity.
	uid, ok := f.tokens.ExtractUserID(res.AccessToken)
	require.True(t, ok)
	wantUID, _ := f.tokens.ExtractUserID(login.AccessToken)
	assert.Equal(t, wantUID, uid)

	// The same refresh token keeps working.
	again := f.engine.RefreshToken(ctx, login.RefreshToken)
	assert.True(t, again.Success)
}

func TestEngine_RefreshToken_Rejections(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	f.register(t, "alice@example.com", "alice", "P@ssw0rd!")
	login := f.login(t, "alice", "P@ssw0rd!")
	require.True(t, login.Success)
	ctx := context.Background()

	// An access token is not accepted as a refresh token.
	res := f.engine.RefreshToken(ctx, login.AccessToken)
	assert.False(t, res.Success)
	assert.Equal(t, "InvalidToken", res.ErrorCode)

	res = f.engine.RefreshToken(ctx, "not-a-jwt")
	assert.False(t, res.Success)
	assert.Equal(t, "InvalidToken", res.ErrorCode)

	// A token signed with a different secret is rejected.
	otherStore := token.NewMemoryStore()
	other := token.NewService("another-secret-another-secret-ok", time.Minute, time.Hour, "Bearer", otherStore)
	foreign, err := other.GenerateRefreshToken(ctx, *login.User)
	require.NoError(t, err)
	res = f.engine.RefreshToken(ctx, foreign)
	assert.False(t, res.Success)
	assert.Equal(t, "InvalidToken", res.ErrorCode)
}

func TestEngine_Logout(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	f.register(t, "alice@example.com", "alice", "P@ssw0rd!")
	login := f.login(t, "alice", "P@ssw0rd!")
	require.True(t, login.Success)
	ctx := context.Background()

	res := f.engine.Logout(ctx, login.RefreshToken)
	require.True(t, res.Success, res.Message)

	// The revoked token can no longer refresh.
	refresh := f.engine.RefreshToken(ctx, login.RefreshToken)
	assert.False(t, refresh.Success)
	assert.Equal(t, "InvalidToken", refresh.ErrorCode)

	// A second logout with the same token fails without side effects.
	res = f.engine.Logout(ctx, login.RefreshToken)
	assert.False(t, res.Success)
	assert.Equal(t, "InvalidToken", res.ErrorCode)

	res = f.engine.Logout(ctx, "garbage")
	assert.False(t, res.Success)
	assert.Equal(t, "InvalidToken", res.ErrorCode)
}

func TestEngine_Logout_RevokesAllSessions(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	f.register(t, "alice@example.com", "alice", "P@ssw0rd!")
	first := f.login(t, "alice", "P@ssw0rd!")
	second := f.login(t, "alice", "P@ssw0rd!")
	require.True(t, first.Success)
	require.True(t, second.Success)
	ctx := context.Background()

	res := f.engine.Logout(ctx, first.RefreshToken)
	require.True(t, res.Success)

	assert.False(t, f.engine.RefreshToken(ctx, first.RefreshToken).Success)
	assert.False(t, f.engine.RefreshToken(ctx, second.RefreshToken).Success,
		"logout revokes every session of the user")
}

func TestEngine_ChangePassword(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	reg := f.register(t, "alice@example.com", "alice", "P@ssw0rd!")
	login := f.login(t, "alice", "P@ssw0rd!")
	require.True(t, login.Success)
	ctx := context.Background()

	res := f.engine.ChangePassword(ctx, reg.User.ID, "P@ssw0rd!", "N3w$ecret!")
	require.True(t, res.Success, res.Message)

	// Old password no longer works, new one does.
	assert.False(t, f.login(t, "alice", "P@ssw0rd!").Success)
	assert.True(t, f.login(t, "alice", "N3w$ecret!").Success)

	// Outstanding refresh tokens were revoked.
	assert.False(t, f.engine.RefreshToken(ctx, login.RefreshToken).Success)

	f.engine.Wait()
	_, passwordChanges, _ := f.notifier.counts()
	assert.Equal(t, 1, passwordChanges)
}

func TestEngine_ChangePassword_Failures(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	reg := f.register(t, "alice@example.com", "alice", "P@ssw0rd!")
	ctx := context.Background()

	res := f.engine.ChangePassword(ctx, reg.User.ID, "wrong-current", "N3w$ecret!")
	assert.False(t, res.Success)
	assert.Equal(t, "InvalidCredentials", res.ErrorCode)

	res = f.engine.ChangePassword(ctx, reg.User.ID, "P@ssw0rd!", "weak")
	assert.False(t, res.Success)
	assert.Equal(t, "InvalidPassword", res.ErrorCode)

	res = f.engine.ChangePassword(ctx, "no-such-user", "P@ssw0rd!", "N3w$ecret!")
	assert.False(t, res.Success)
	assert.Equal(t, "UserNotFound", res.ErrorCode)

	// Failed attempts do not change the stored hash.
	assert.True(t, f.login(t, "alice", "P@ssw0rd!").Success)
}

func TestEngine_ValidateTokenAndLookups(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	reg := f.register(t, "alice@example.com", "alice", "P@ssw0rd!")
	ctx := context.Background()

	u, ok := f.engine.ValidateToken(ctx, reg.AccessToken)
	require.True(t, ok)
	assert.Equal(t, reg.User.ID, u.ID)

	_, ok = f.engine.ValidateToken(ctx, "garbage")
	assert.False(t, ok)

	u, ok = f.engine.GetUserByID(ctx, reg.User.ID)
	assert.True(t, ok)
	assert.Equal(t, "alice", u.Username)

	u, ok = f.engine.GetUserByEmail(ctx, "ALICE@example.com")
	assert.True(t, ok)
	assert.Equal(t, reg.User.ID, u.ID)

	u, ok = f.engine.GetUserByUsername(ctx, "alice")
	assert.True(t, ok)
	assert.Equal(t, reg.User.ID, u.ID)

	_, ok = f.engine.GetUserByID(ctx, "missing")
	assert.False(t, ok)
	_, ok = f.engine.GetUserByEmail(ctx, "not-an-email")
	assert.False(t, ok)
}

func TestEngine_DispatchLoginAlert(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	reg := f.register(t, "alice@example.com", "alice", "P@ssw0rd!")

	f.engine.DispatchLoginAlert(*reg.User, "203.0.113.7", "curl/8.0")
	f.engine.Wait()
	_, _, loginAlerts := f.notifier.counts()
	assert.Equal(t, 1, loginAlerts)
}
