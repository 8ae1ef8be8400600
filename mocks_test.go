package auth_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	auth "github.com/goliatone/go-auth-api"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

// newRouterApp builds a fiber backed go-router server with the API error
// handler installed. Requests are replayed against the returned fiber app.
func newRouterApp() (*fiber.App, router.Router[*fiber.App]) {
	app := fiber.New(fiber.Config{ErrorHandler: auth.NewErrorHandler(&MockLogger{})})
	srv := router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		return app
	})
	return app, srv.Router()
}

// fakeClock is a settable time source shared by services under test
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig(clock *fakeClock) auth.Config {
	cfg := auth.DefaultConfig("test-signing-key")
	cfg.BcryptCost = bcrypt.MinCost
	cfg.Now = clock.Now
	return cfg
}

// MockIdentity implements auth.Identity
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Email() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Role() string {
	args := m.Called()
	return args.String(0)
}

// MockLogger implements auth.Logger
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(msg string, args ...any) {}
func (m *MockLogger) Info(msg string, args ...any)  {}
func (m *MockLogger) Warn(msg string, args ...any)  {}
func (m *MockLogger) Error(msg string, args ...any) {}

// MockIdentityProvider implements auth.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, email, password string) (auth.Identity, error) {
	args := m.Called(ctx, email, password)
	identity, _ := args.Get(0).(auth.Identity)
	return identity, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (auth.Identity, error) {
	args := m.Called(ctx, identifier)
	identity, _ := args.Get(0).(auth.Identity)
	return identity, args.Error(1)
}

// MockMailer implements auth.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, to, subject, template string, data map[string]any) error {
	args := m.Called(ctx, to, subject, template, data)
	return args.Error(0)
}

// sentResetURL returns the reset_url of the single recorded Send call
func (m *MockMailer) sentResetURL(t *testing.T) string {
	t.Helper()
	var calls []mock.Call
	for _, call := range m.Calls {
		if call.Method == "Send" {
			calls = append(calls, call)
		}
	}
	require.Len(t, calls, 1)
	data, ok := calls[0].Arguments.Get(4).(map[string]any)
	require.True(t, ok)
	resetURL, ok := data["reset_url"].(string)
	require.True(t, ok)
	return resetURL
}

// recordingSink keeps every activity event it receives
type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (r *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) types() []auth.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type testIdentity struct {
	id    string
	email string
	role  string
}

func (t testIdentity) ID() string    { return t.id }
func (t testIdentity) Email() string { return t.email }
func (t testIdentity) Role() string  { return t.role }

func newIdentity(id string) auth.Identity {
	return testIdentity{id: id, email: id + "@example.com", role: auth.RoleMember}
}

// tamper changes the first character of the signature segment
func tamper(token string) string {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[2] == "" {
		return token + "x"
	}
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	parts[2] = string(sig)
	return strings.Join(parts, ".")
}

// newTestDB returns a migrated in-memory sqlite database private to the test
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := auth.OpenDB(auth.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})
	require.NoError(t, auth.Migrate(context.Background(), db))
	return db
}

// seedUser stores an active user with the given password
func seedUser(t *testing.T, repo auth.RepositoryManager, email, password string, mutate ...func(*auth.User)) *auth.User {
	t.Helper()
	hash, err := auth.HashPasswordWithCost(password, bcrypt.MinCost)
	require.NoError(t, err)

	user := &auth.User{
		EmailAddress: email,
		FirstName:    "Ada",
		LastName:     "Lovelace",
		PasswordHash: hash,
		IsActive:     true,
	}
	for _, fn := range mutate {
		fn(user)
	}

	user, err = repo.Users().Create(context.Background(), user)
	require.NoError(t, err)
	return user
}

// stubHasher stores passwords with a fixed prefix and records what it hashed
type stubHasher struct {
	mu     sync.Mutex
	hashed []string
}

func (s *stubHasher) HashPassword(password string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashed = append(s.hashed, password)
	return "stub$" + password, nil
}

func (s *stubHasher) ComparePasswordAndHash(password, hash string) error {
	if hash != "stub$"+password {
		return auth.ErrMismatchedHashAndPassword
	}
	return nil
}

func (s *stubHasher) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.hashed...)
}
