package auth_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	auth "github.com/goliatone/go-auth-api"
	"github.com/goliatone/go-auth-api/middleware/jwtware"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, resp *http.Response) auth.ErrorResponse {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body auth.ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	return body
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "duplicate user", err: auth.ErrUserAlreadyExists, wantStatus: 400, wantCode: auth.TextCodeUserAlreadyExists},
		{name: "bad credentials", err: auth.ErrInvalidCredentials, wantStatus: 401, wantCode: auth.TextCodeInvalidCredentials},
		{name: "expired token", err: auth.ErrExpiredToken, wantStatus: 401, wantCode: auth.TextCodeExpiredToken},
		{name: "expired reset link", err: auth.ErrExpiredTokenSignature, wantStatus: 400, wantCode: auth.TextCodeExpiredTokenSignature},
		{
			name:       "wrapped sentinel keeps its code",
			err:        goerrors.Wrap(auth.ErrInvalidToken, goerrors.CategoryAuth, "refresh"),
			wantStatus: 401,
			wantCode:   auth.TextCodeInvalidToken,
		},
		{name: "plain error", err: errors.New("db exploded"), wantStatus: 500, wantCode: auth.TextCodeInternal},
		{name: "not found stays internal", err: auth.NewRecordNotFound("user"), wantStatus: 500, wantCode: auth.TextCodeInternal},
		{name: "empty password", err: auth.ErrNoEmptyString, wantStatus: 400, wantCode: auth.TextCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: auth.NewErrorHandler(&MockLogger{})})
			app.Get("/", func(c *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body := decodeError(t, resp)
			assert.Equal(t, tt.wantCode, body.Error)
			if tt.wantStatus == 500 {
				assert.NotContains(t, body.Detail, "db exploded")
			}
		})
	}
}

func TestErrorHandler_ValidationDetailIsFieldMap(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: auth.NewErrorHandler(nil)})
	app.Get("/", func(c *fiber.Ctx) error {
		return auth.RegisterUserMessage{EmailAddress: "ada@example.com", FirstName: "Ada"}.Validate()
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeError(t, resp)
	assert.Equal(t, auth.TextCodeValidation, body.Error)
	fields, ok := body.Detail.(map[string]any)
	require.True(t, ok, "detail should be a field map: %#v", body.Detail)
	assert.Contains(t, fields, "password")
}

func TestErrorHandler_UnknownRoute(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: auth.NewErrorHandler(nil)})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error)
}

func TestProtectedRoute(t *testing.T) {
	clock := newFakeClock()
	service := auth.NewTokenService(testConfig(clock), nil)
	pair, err := service.IssuePair(newIdentity("user-1"))
	require.NoError(t, err)

	app, r := newRouterApp()
	r.Get("/me", func(c router.Context) error {
		claims, ok := auth.GetRouterClaims(c, "")
		if !ok {
			return errors.New("claims missing")
		}
		fromCtx, ok := auth.GetClaims(c.Context())
		if !ok || fromCtx.UserID() != claims.UserID() {
			return errors.New("claims missing from request context")
		}
		return c.SendString(claims.UserID())
	}, auth.ProtectedRoute(service, ""))

	call := func(header string) *http.Response {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	t.Run("valid access token", func(t *testing.T) {
		resp := call("Bearer " + pair.AccessToken)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		raw, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "user-1", string(raw))
	})

	t.Run("missing header", func(t *testing.T) {
		resp := call("")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, auth.TextCodeNotAuthenticated, decodeError(t, resp).Error)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		resp := call("Token " + pair.AccessToken)
		assert.Equal(t, auth.TextCodeNotAuthenticated, decodeError(t, resp).Error)
	})

	t.Run("refresh token as bearer", func(t *testing.T) {
		resp := call("Bearer " + pair.RefreshToken)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, auth.TextCodeInvalidToken, decodeError(t, resp).Error)
	})

	t.Run("tampered token", func(t *testing.T) {
		resp := call("Bearer " + tamper(pair.AccessToken))
		assert.Equal(t, auth.TextCodeInvalidToken, decodeError(t, resp).Error)
	})

	t.Run("expired token", func(t *testing.T) {
		clock.Advance(11 * time.Minute)
		resp := call("Bearer " + pair.AccessToken)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, auth.TextCodeExpiredToken, decodeError(t, resp).Error)
	})
}

func TestProtectedRoute_ListenerRejects(t *testing.T) {
	service := auth.NewTokenService(testConfig(newFakeClock()), nil)
	pair, err := service.IssuePair(newIdentity("user-1"))
	require.NoError(t, err)

	var seen string
	app, r := newRouterApp()
	r.Get("/me", func(c router.Context) error {
		return c.SendString("ok")
	}, auth.ProtectedRoute(service, "", func(c router.Context, claims jwtware.AuthClaims) error {
		seen = claims.UserID()
		return errors.New("account disabled")
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, "user-1", seen)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, auth.TextCodeInvalidToken, decodeError(t, resp).Error)
}
