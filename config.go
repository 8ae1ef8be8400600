package auth

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultAccessTokenTTL is the lifetime of access tokens
	DefaultAccessTokenTTL = 10 * time.Minute
	// DefaultRefreshTokenTTL is the lifetime of refresh tokens
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
	// DefaultResetTokenMaxAge is how long a password reset link stays valid
	DefaultResetTokenMaxAge = 24 * time.Hour
	// DefaultResetTokenSalt separates reset token keys from the session signing key
	DefaultResetTokenSalt = "password-reset-salt"
)

// Config holds auth options. It is built once at startup and passed by value.
type Config struct {
	SigningKey       string
	Issuer           string
	Audience         string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	ResetTokenSalt   string
	ResetTokenMaxAge time.Duration
	BcryptCost       int
	// UseHashid derives user ids from the email address instead of random UUIDs
	UseHashid bool
	// Now is the clock used for every time based decision
	Now func() time.Time
}

// DefaultConfig returns a Config with the default lifetimes for the given secret
func DefaultConfig(signingKey string) Config {
	return Config{
		SigningKey:       signingKey,
		AccessTokenTTL:   DefaultAccessTokenTTL,
		RefreshTokenTTL:  DefaultRefreshTokenTTL,
		ResetTokenSalt:   DefaultResetTokenSalt,
		ResetTokenMaxAge: DefaultResetTokenMaxAge,
		BcryptCost:       bcrypt.DefaultCost,
		Now:              time.Now,
	}
}

// WithDefaults fills zero values with defaults
func (c Config) WithDefaults() Config {
	if c.AccessTokenTTL <= 0 {
		c.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if c.RefreshTokenTTL <= 0 {
		c.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if c.ResetTokenSalt == "" {
		c.ResetTokenSalt = DefaultResetTokenSalt
	}
	if c.ResetTokenMaxAge <= 0 {
		c.ResetTokenMaxAge = DefaultResetTokenMaxAge
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = bcrypt.DefaultCost
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Validate checks the configuration is usable
func (c Config) Validate() error {
	if err := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&c,
			validation.Field(&c.SigningKey, validation.Required),
			validation.Field(&c.AccessTokenTTL, validation.Required, validation.Min(time.Second)),
			validation.Field(&c.RefreshTokenTTL, validation.Required, validation.Min(time.Second)),
			validation.Field(&c.ResetTokenSalt, validation.Required),
			validation.Field(&c.ResetTokenMaxAge, validation.Required, validation.Min(time.Second)),
			validation.Field(&c.BcryptCost, validation.Min(bcrypt.MinCost), validation.Max(bcrypt.MaxCost)),
		)
	}, "invalid auth configuration"); err != nil {
		return err
	}
	return nil
}

func (c Config) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
