package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	auth "github.com/goliatone/go-auth-api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	clock  *fakeClock
	repo   auth.RepositoryManager
	auther *auth.Auther
	sink   *recordingSink
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	clock := newFakeClock()
	repo := auth.NewRepositoryManager(newTestDB(t), auth.WithUsersClock(clock.Now))
	sink := &recordingSink{}
	auther := auth.NewAuthenticator(auth.NewUserProvider(repo.Users()), testConfig(clock)).
		WithLogger(&MockLogger{}).
		WithActivitySink(sink)

	return &authFixture{clock: clock, repo: repo, auther: auther, sink: sink}
}

func TestAuthenticator_Login(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user := seedUser(t, f.repo, "ada@example.com", "secret123")

	result, err := f.auther.Login(ctx, "ada@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.Equal(t, "Ada", result.User.Public().FirstName)

	access, err := f.auther.TokenService().Verify(result.Tokens.AccessToken, auth.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), access.UserID())

	refresh, err := f.auther.TokenService().Verify(result.Tokens.RefreshToken, auth.TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), refresh.UserID())

	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventLoginSuccess}, f.sink.types())
}

func TestAuthenticator_LoginFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	seedUser(t, f.repo, "ada@example.com", "secret123")
	seedUser(t, f.repo, "gone@example.com", "secret123", func(u *auth.User) {
		u.IsActive = false
	})

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong password", email: "ada@example.com", password: "wrong-password"},
		{name: "unknown email", email: "nobody@example.com", password: "secret123"},
		{name: "inactive user", email: "gone@example.com", password: "secret123"},
	}

	var messages []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.auther.Login(ctx, tt.email, tt.password)
			assert.Nil(t, result)
			require.Error(t, err)
			assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidCredentials))
			messages = append(messages, err.Error())
		})
	}

	require.Len(t, messages, 3)
	assert.Equal(t, messages[0], messages[1])
	assert.Equal(t, messages[1], messages[2])
}

func TestAuthenticator_LoginPropagatesStoreErrors(t *testing.T) {
	provider := &MockIdentityProvider{}
	provider.On("VerifyIdentity", mock.Anything, "ada@example.com", "secret123").
		Return(nil, errors.New("connection refused"))

	auther := auth.NewAuthenticator(provider, testConfig(newFakeClock()))

	_, err := auther.Login(context.Background(), "ada@example.com", "secret123")
	require.Error(t, err)
	assert.False(t, auth.HasTextCode(err, auth.TextCodeInvalidCredentials))
	provider.AssertExpectations(t)
}

func TestAuthenticator_Refresh(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user := seedUser(t, f.repo, "ada@example.com", "secret123")

	result, err := f.auther.Login(ctx, "ada@example.com", "secret123")
	require.NoError(t, err)

	f.clock.Advance(time.Hour)

	access, err := f.auther.Refresh(ctx, result.Tokens.RefreshToken)
	require.NoError(t, err)

	claims, err := f.auther.Validate(access)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID())

	t.Run("access token is not a refresh token", func(t *testing.T) {
		_, err := f.auther.Refresh(ctx, result.Tokens.AccessToken)
		assert.True(t, auth.IsInvalidTokenError(err))
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		_, err := f.auther.Validate(result.Tokens.RefreshToken)
		assert.True(t, auth.IsInvalidTokenError(err))
	})

	t.Run("expired refresh token", func(t *testing.T) {
		f.clock.Advance(7 * 24 * time.Hour)
		_, err := f.auther.Refresh(ctx, result.Tokens.RefreshToken)
		assert.True(t, auth.IsTokenExpiredError(err))
	})
}

func TestAuthenticator_RefreshForInactiveUser(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	user := seedUser(t, f.repo, "ada@example.com", "secret123", func(u *auth.User) {
		u.IsActive = false
	})

	refresh, err := f.auther.TokenService().IssueRefreshToken(auth.NewIdentityFromUser(user))
	require.NoError(t, err)

	_, err = f.auther.Refresh(ctx, refresh)
	assert.True(t, auth.IsInvalidTokenError(err))

	unknown, err := f.auther.TokenService().IssueRefreshToken(newIdentity("c0ffee00-0000-4000-8000-000000000000"))
	require.NoError(t, err)

	_, err = f.auther.Refresh(ctx, unknown)
	assert.True(t, auth.IsInvalidTokenError(err))
}
