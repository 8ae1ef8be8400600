package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	auth "github.com/goliatone/go-auth-api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenService(t *testing.T) {
	t.Run("creates token service with logger", func(t *testing.T) {
		logger := &MockLogger{}

		service := auth.NewTokenService(auth.DefaultConfig("test-signing-key"), logger)

		assert.NotNil(t, service)
	})

	t.Run("creates token service with nil logger", func(t *testing.T) {
		service := auth.NewTokenService(auth.DefaultConfig("test-signing-key"), nil)

		assert.NotNil(t, service)
	})
}

func TestTokenService_AccessRoundTrip(t *testing.T) {
	clock := newFakeClock()
	service := auth.NewTokenService(testConfig(clock), nil)

	identity := &MockIdentity{}
	identity.On("ID").Return("user-123")
	identity.On("Role").Return(auth.RoleMember)

	token, err := service.IssueAccessToken(identity)
	require.NoError(t, err)

	claims, err := service.Verify(token, auth.TokenTypeAccess)
	require.NoError(t, err)

	assert.Equal(t, "user-123", claims.UserID())
	assert.Equal(t, "user-123", claims.Subject())
	assert.Equal(t, auth.TokenTypeAccess, claims.TokenType())
	assert.Equal(t, auth.RoleMember, claims.Role())
	assert.NotEmpty(t, claims.TokenID())
	assert.Equal(t, clock.Now().Unix(), claims.IssuedAt().Unix())
	assert.Equal(t, clock.Now().Add(10*time.Minute).Unix(), claims.Expires().Unix())

	identity.AssertExpectations(t)
}

func TestTokenService_IssuePair(t *testing.T) {
	clock := newFakeClock()
	service := auth.NewTokenService(testConfig(clock), nil)

	pair, err := service.IssuePair(newIdentity("user-1"))
	require.NoError(t, err)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	refresh, err := service.Verify(pair.RefreshToken, auth.TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(7*24*time.Hour).Unix(), refresh.Expires().Unix())
}

func TestTokenService_UniqueTokenIDs(t *testing.T) {
	service := auth.NewTokenService(testConfig(newFakeClock()), nil)
	identity := newIdentity("user-1")

	first, err := service.IssueAccessToken(identity)
	require.NoError(t, err)
	second, err := service.IssueAccessToken(identity)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestTokenService_TypeConfusion(t *testing.T) {
	service := auth.NewTokenService(testConfig(newFakeClock()), nil)
	pair, err := service.IssuePair(newIdentity("user-1"))
	require.NoError(t, err)

	_, err = service.Verify(pair.RefreshToken, auth.TokenTypeAccess)
	assert.True(t, auth.IsInvalidTokenError(err))

	_, err = service.Verify(pair.AccessToken, auth.TokenTypeRefresh)
	assert.True(t, auth.IsInvalidTokenError(err))

	_, err = service.Validate(pair.RefreshToken)
	assert.True(t, auth.IsInvalidTokenError(err))
}

func TestTokenService_Expiry(t *testing.T) {
	clock := newFakeClock()
	service := auth.NewTokenService(testConfig(clock), nil)

	pair, err := service.IssuePair(newIdentity("user-1"))
	require.NoError(t, err)

	clock.Advance(9 * time.Minute)
	_, err = service.Verify(pair.AccessToken, auth.TokenTypeAccess)
	assert.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = service.Verify(pair.AccessToken, auth.TokenTypeAccess)
	assert.True(t, auth.IsTokenExpiredError(err))
	assert.False(t, auth.IsInvalidTokenError(err))

	// refresh is still alive at 11 minutes
	_, err = service.Verify(pair.RefreshToken, auth.TokenTypeRefresh)
	assert.NoError(t, err)
}

func TestTokenService_ExpiredWrongTypeIsInvalid(t *testing.T) {
	clock := newFakeClock()
	service := auth.NewTokenService(testConfig(clock), nil)

	access, err := service.IssueAccessToken(newIdentity("user-1"))
	require.NoError(t, err)

	clock.Advance(time.Hour)

	_, err = service.Verify(access, auth.TokenTypeRefresh)
	assert.True(t, auth.IsInvalidTokenError(err))
	assert.False(t, auth.IsTokenExpiredError(err))
}

func TestTokenService_RejectsForeignOrTamperedTokens(t *testing.T) {
	clock := newFakeClock()
	service := auth.NewTokenService(testConfig(clock), nil)

	otherCfg := testConfig(clock)
	otherCfg.SigningKey = "another-secret"
	other := auth.NewTokenService(otherCfg, nil)

	token, err := other.IssueAccessToken(newIdentity("user-1"))
	require.NoError(t, err)

	valid, err := service.IssueAccessToken(newIdentity("user-1"))
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id":    "user-1",
		"token_type": "access",
		"exp":        clock.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "wrong secret", token: token},
		{name: "tampered payload", token: tamper(valid)},
		{name: "garbage", token: "not-a-token"},
		{name: "empty", token: ""},
		{name: "alg none", token: noneToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Verify(tt.token, auth.TokenTypeAccess)
			assert.True(t, auth.IsInvalidTokenError(err))
		})
	}
}

func TestTokenService_IssuerAndAudience(t *testing.T) {
	clock := newFakeClock()
	cfg := testConfig(clock)
	cfg.Issuer = "auth-api"
	cfg.Audience = "web"
	service := auth.NewTokenService(cfg, nil)

	token, err := service.IssueAccessToken(newIdentity("user-1"))
	require.NoError(t, err)

	claims, err := service.Verify(token, auth.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "auth-api", claims.Issuer)

	otherCfg := cfg
	otherCfg.Audience = "mobile"
	_, err = auth.NewTokenService(otherCfg, nil).Verify(token, auth.TokenTypeAccess)
	assert.True(t, auth.IsInvalidTokenError(err))
}

func TestTokenService_SignClaimsRejectsNil(t *testing.T) {
	service := auth.NewTokenService(testConfig(newFakeClock()), nil)

	_, err := service.SignClaims(nil)
	assert.Error(t, err)
}
