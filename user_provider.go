package auth

import (
	"context"

	"github.com/goliatone/go-errors"
)

// UserFinder is a store we can use to retrieve users
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
}

// UserProvider handles users
type UserProvider struct {
	store    UserFinder
	logger   Logger
	provider LoggerProvider
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserFinder) *UserProvider {
	loggerProvider, logger := ResolveLogger("auth.user_provider", nil, nil)
	return &UserProvider{
		store:    store,
		logger:   logger,
		provider: loggerProvider,
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.provider, u.logger = ResolveLogger("auth.user_provider", u.provider, l)
	return u
}

// WithLoggerProvider overrides the logger provider used by the user provider.
func (u *UserProvider) WithLoggerProvider(provider LoggerProvider) *UserProvider {
	u.provider, u.logger = ResolveLogger("auth.user_provider", provider, nil)
	return u
}

// VerifyIdentity will find the user, compare to the password, and return identity.
// Unknown email, wrong password and inactive account all yield ErrInvalidCredentials.
func (u UserProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	user, err := u.store.GetByEmail(ctx, email)
	if err != nil {
		if IsRecordNotFound(err) {
			compareDummyHash(password)
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if !HasTextCode(err, TextCodeInvalidCredentials) {
			u.logger.Error("password compare failed", "user_id", user.ID.String(), "error", err)
		}
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		u.logger.Debug("login attempt for inactive user", "user_id", user.ID.String())
		return nil, ErrInvalidCredentials
	}

	return NewIdentityFromUser(user), nil
}

// FindIdentityByIdentifier returns the identity for an active user by id or email
func (u UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	user, err := u.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, NewRecordNotFound("user").WithMetadata(map[string]any{"identifier": identifier})
	}

	return NewIdentityFromUser(user), nil
}

var _ IdentityProvider = UserProvider{}
