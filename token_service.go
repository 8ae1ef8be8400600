package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const signingAlgorithm = "HS256"

// TokenService issues and verifies access and refresh tokens
type TokenService struct {
	cfg    Config
	logger Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg Config, logger Logger) *TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenService{
		cfg:    cfg.WithDefaults(),
		logger: logger,
	}
}

// IssueAccessToken creates a short lived access token for identity
func (ts *TokenService) IssueAccessToken(identity Identity) (string, error) {
	return ts.issue(identity, TokenTypeAccess, ts.cfg.AccessTokenTTL)
}

// IssueRefreshToken creates a long lived refresh token for identity
func (ts *TokenService) IssueRefreshToken(identity Identity) (string, error) {
	return ts.issue(identity, TokenTypeRefresh, ts.cfg.RefreshTokenTTL)
}

// IssuePair creates both an access and a refresh token
func (ts *TokenService) IssuePair(identity Identity) (TokenPair, error) {
	access, err := ts.IssueAccessToken(identity)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := ts.IssueRefreshToken(identity)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (ts *TokenService) issue(identity Identity, tokenType TokenType, ttl time.Duration) (string, error) {
	if identity == nil || identity.ID() == "" {
		return "", errors.New("identity must not be empty", errors.CategoryInternal)
	}

	now := ts.cfg.now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.ID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:      identity.ID(),
		Type:     tokenType,
		UserRole: identity.Role(),
	}

	if ts.cfg.Issuer != "" {
		claims.Issuer = ts.cfg.Issuer
	}

	if ts.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{ts.cfg.Audience}
	}

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenService) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString([]byte(ts.cfg.SigningKey))
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Verify checks the token signature, then its token_type and only then its
// expiry. A token of the wrong type is reported invalid even when expired.
func (ts *TokenService) Verify(tokenString string, expected TokenType) (*JWTClaims, error) {
	claims := &JWTClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingAlgorithm}),
		jwt.WithoutClaimsValidation(),
	)

	if _, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(ts.cfg.SigningKey), nil
	}); err != nil {
		ts.logger.Debug("token rejected", "reason", err.Error())
		return nil, ErrInvalidToken
	}

	if claims.Type != expected {
		ts.logger.Debug("token type mismatch", "expected", string(expected), "got", string(claims.Type))
		return nil, ErrInvalidToken
	}

	if err := ts.validator().Validate(claims); err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenInvalidIssuer),
			errors.Is(err, jwt.ErrTokenInvalidAudience),
			errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
			errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrInvalidToken
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		default:
			return nil, ErrInvalidToken
		}
	}

	if claims.UserID() == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Validate verifies an access token, satisfying TokenValidator
func (ts *TokenService) Validate(tokenString string) (AuthClaims, error) {
	claims, err := ts.Verify(tokenString, TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (ts *TokenService) validator() *jwt.Validator {
	opts := []jwt.ParserOption{
		jwt.WithTimeFunc(ts.cfg.now),
		jwt.WithExpirationRequired(),
	}
	if ts.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(ts.cfg.Issuer))
	}
	if ts.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(ts.cfg.Audience))
	}
	return jwt.NewValidator(opts...)
}

var _ TokenValidator = (*TokenService)(nil)
