// Package config loads the service configuration from the environment.
package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	auth "github.com/goliatone/go-auth-api"
	"github.com/goliatone/go-auth-api/mailer"
	"github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
)

const (
	// EmailBackendSMTP delivers mail through the configured SMTP server
	EmailBackendSMTP = "smtp"
	// EmailBackendLog writes rendered mail to the log
	EmailBackendLog = "log"
)

type Config struct {
	Address string `env:"AUTH_ADDRESS" envDefault:":8000"`
	Debug   bool   `env:"AUTH_DEBUG" envDefault:"false"`

	SecretKey                  string `env:"AUTH_SECRET_KEY,required,notEmpty"`
	Issuer                     string `env:"AUTH_JWT_ISSUER"`
	Audience                   string `env:"AUTH_JWT_AUDIENCE"`
	AccessTokenLifetimeMinutes int    `env:"ACCESS_TOKEN_LIFETIME_MINUTES" envDefault:"10"`
	RefreshTokenLifetimeHours  int    `env:"REFRESH_TOKEN_LIFETIME_HOURS" envDefault:"168"`
	ResetTokenMaxAgeHours      int    `env:"RESET_TOKEN_MAX_AGE_HOURS" envDefault:"24"`
	ResetTokenSalt             string `env:"AUTH_RESET_TOKEN_SALT" envDefault:"password-reset-salt"`
	BcryptCost                 int    `env:"AUTH_BCRYPT_COST" envDefault:"10"`
	UseHashid                  bool   `env:"AUTH_USE_HASHID" envDefault:"false"`

	Database Database `envPrefix:"AUTH_DB_"`
	Email    Email    `envPrefix:"EMAIL_"`

	CORSAllowedOrigins []string `env:"AUTH_CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

type Database struct {
	Driver         string `env:"DRIVER" envDefault:"sqlite"`
	DSN            string `env:"DSN" envDefault:"file:auth.db?cache=shared"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`
}

type Email struct {
	Backend    string        `env:"BACKEND" envDefault:"log"`
	Host       string        `env:"HOST"`
	Port       int           `env:"PORT" envDefault:"587"`
	User       string        `env:"HOST_USER"`
	Password   string        `env:"HOST_PASSWORD"`
	From       string        `env:"FROM" envDefault:"noreply@localhost"`
	RequireTLS bool          `env:"USE_TLS" envDefault:"false"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// Load reads the optional dotenv files and parses the environment
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return Config{}, errors.Wrap(err, errors.CategoryBadInput, "failed to read env file").
				WithMetadata(map[string]any{"file": file})
		}
	}

	return Parse()
}

// Parse reads the configuration from the process environment only
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, errors.CategoryValidation, "invalid environment configuration")
	}

	if err := cfg.Auth().Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Auth converts the settings into the token and password options
func (c Config) Auth() auth.Config {
	cfg := auth.DefaultConfig(c.SecretKey)
	cfg.Issuer = c.Issuer
	cfg.Audience = c.Audience
	cfg.AccessTokenTTL = time.Duration(c.AccessTokenLifetimeMinutes) * time.Minute
	cfg.RefreshTokenTTL = time.Duration(c.RefreshTokenLifetimeHours) * time.Hour
	cfg.ResetTokenMaxAge = time.Duration(c.ResetTokenMaxAgeHours) * time.Hour
	cfg.ResetTokenSalt = c.ResetTokenSalt
	cfg.BcryptCost = c.BcryptCost
	cfg.UseHashid = c.UseHashid
	return cfg
}

// SMTP returns the SMTP delivery settings
func (c Config) SMTP() mailer.Config {
	return mailer.Config{
		Host:       c.Email.Host,
		Port:       c.Email.Port,
		Username:   c.Email.User,
		Password:   c.Email.Password,
		From:       c.Email.From,
		RequireTLS: c.Email.RequireTLS,
		Timeout:    c.Email.Timeout,
	}
}

// NewMailer builds the mailer selected by EMAIL_BACKEND
func (c Config) NewMailer(logger auth.Logger) (auth.Mailer, error) {
	switch c.Email.Backend {
	case EmailBackendSMTP:
		return mailer.NewSMTPMailer(c.SMTP(), nil, logger)
	case EmailBackendLog, "":
		return mailer.NewLogMailer(nil, logger)
	default:
		return nil, errors.New("unknown email backend", errors.CategoryBadInput).
			WithMetadata(map[string]any{"backend": c.Email.Backend})
	}
}
