package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// ResetTokenPurpose marks a token as a password reset token
const ResetTokenPurpose = "password_reset"

// resetTokenLeeway tolerates small clock skew on the issue time
const resetTokenLeeway = time.Minute

// ResetClaims are the claims carried by a password reset token
type ResetClaims struct {
	jwt.RegisteredClaims
	Purpose string `json:"purpose"`
}

// ResetTokenService issues and confirms signed, time limited password reset
// tokens. Keys are derived from the signing key and a salt so reset tokens
// and session tokens are never interchangeable.
type ResetTokenService struct {
	key    []byte
	maxAge time.Duration
	now    func() time.Time
	logger Logger
}

// NewResetTokenService creates a ResetTokenService from cfg
func NewResetTokenService(cfg Config, logger Logger) *ResetTokenService {
	if logger == nil {
		logger = defLogger{}
	}
	cfg = cfg.WithDefaults()
	return &ResetTokenService{
		key:    deriveKey(cfg.SigningKey, cfg.ResetTokenSalt),
		maxAge: cfg.ResetTokenMaxAge,
		now:    cfg.now,
		logger: logger,
	}
}

func deriveKey(secret, salt string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(salt))
	return mac.Sum(nil)
}

// Issue signs a reset token for userID stamped with the current time
func (s *ResetTokenService) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("user id must not be empty", errors.CategoryInternal)
	}

	claims := &ResetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(s.now()),
		},
		Purpose: ResetTokenPurpose,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign reset token")
	}
	return signed, nil
}

// Confirm returns the user id carried by token. The signature is checked
// before the age, so a tampered old token reports a bad signature.
// A zero maxAge uses the configured default.
func (s *ResetTokenService) Confirm(token string, maxAge time.Duration) (string, error) {
	if maxAge <= 0 {
		maxAge = s.maxAge
	}

	claims := &ResetClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingAlgorithm}),
		jwt.WithoutClaimsValidation(),
	)

	if _, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.key, nil
	}); err != nil {
		s.logger.Debug("reset token rejected", "reason", err.Error())
		return "", ErrBadTokenSignature
	}

	if claims.Purpose != ResetTokenPurpose || claims.Subject == "" || claims.IssuedAt == nil {
		return "", ErrBadTokenSignature
	}

	now := s.now()
	issuedAt := claims.IssuedAt.Time
	if issuedAt.After(now.Add(resetTokenLeeway)) {
		return "", ErrBadTokenSignature
	}

	if now.Sub(issuedAt) > maxAge {
		return "", ErrExpiredTokenSignature
	}

	return claims.Subject, nil
}
