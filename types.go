package auth

import (
	"context"
	"fmt"
)

// Logger is the structured logger used across the package.
// Arguments after the message are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// LoggerProvider returns a named logger
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// Identity holds the attributes of an identity
type Identity interface {
	ID() string
	Email() string
	Role() string
}

// IdentityProvider ensure we have a store to retrieve auth identity
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, email, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// Mailer delivers templated messages
type Mailer interface {
	Send(ctx context.Context, to, subject, template string, data map[string]any) error
}

// TokenPair is the result of a successful login or refresh
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Println(format("DBG", msg, args...))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Println(format("INF", msg, args...))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Println(format("WRN", msg, args...))
}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Println(format("ERR", msg, args...))
}

func format(level, msg string, args ...any) string {
	out := fmt.Sprintf("[%s] AUTH %s", level, msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			out += fmt.Sprintf(" %v=%v", args[i], args[i+1])
		} else {
			out += fmt.Sprintf(" %v", args[i])
		}
	}
	return out
}
