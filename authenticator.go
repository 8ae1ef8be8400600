package auth

import (
	"context"
	"reflect"

	"github.com/goliatone/go-errors"
)

// LoginResult is returned by a successful login
type LoginResult struct {
	User   *User
	Tokens TokenPair
}

type Auther struct {
	provider     IdentityProvider
	cfg          Config
	logger       Logger
	tokenService *TokenService
	activitySink ActivitySink
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, cfg Config) *Auther {
	cfg = cfg.WithDefaults()
	return &Auther{
		provider:     provider,
		cfg:          cfg,
		logger:       defLogger{},
		tokenService: NewTokenService(cfg, defLogger{}),
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger == nil {
		logger = defLogger{}
	}
	s.logger = logger
	// Update the TokenService logger as well
	s.tokenService = NewTokenService(s.cfg, logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() *TokenService {
	return s.tokenService
}

// Login verifies the credentials and issues a token pair. Every credential
// failure is reported as ErrInvalidCredentials.
func (s *Auther) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	identity, err := s.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		s.emit(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"email": email,
		})
		if HasTextCode(err, TextCodeInvalidCredentials) {
			s.logger.Debug("Login rejected", "email", email)
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("Login verify identity error", "error", err)
		return nil, err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.tokenService.IssuePair(identity)
	if err != nil {
		s.logger.Error("Login failed to issue tokens", "error", err)
		return nil, err
	}

	s.emit(ctx, ActivityEventLoginSuccess, actorFromIdentity(identity), identity.ID(), nil)

	return &LoginResult{
		User:   userFromIdentity(identity),
		Tokens: tokens,
	}, nil
}

// Refresh verifies a refresh token and issues a new access token for its
// user. The refresh token itself is not rotated.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokenService.Verify(refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", err
	}

	identity, err := s.provider.FindIdentityByIdentifier(ctx, claims.UserID())
	if err != nil {
		if IsRecordNotFound(err) {
			s.logger.Debug("Refresh token for unknown or inactive user", "user_id", claims.UserID())
			return "", ErrInvalidToken
		}
		s.logger.Error("Refresh find identity error", "error", err)
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to load user for refresh")
	}

	access, err := s.tokenService.IssueAccessToken(identity)
	if err != nil {
		return "", err
	}

	s.emit(ctx, ActivityEventTokenRefreshed, actorFromIdentity(identity), identity.ID(), map[string]any{
		"jti": claims.TokenID(),
	})

	return access, nil
}

// Validate verifies an access token, satisfying TokenValidator
func (s *Auther) Validate(tokenString string) (AuthClaims, error) {
	return s.tokenService.Validate(tokenString)
}

func (s *Auther) emit(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	emitActivity(ctx, s.activitySink, s.logger, s.cfg.now, ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	})
}

type userIdentity interface {
	User() *User
}

func userFromIdentity(identity Identity) *User {
	if ui, ok := identity.(userIdentity); ok && ui.User() != nil {
		return ui.User()
	}
	return &User{EmailAddress: identity.Email()}
}
