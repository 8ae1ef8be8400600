package auth

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-auth-api/middleware/jwtware"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// ErrorResponse is the body of every API error
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail any    `json:"detail"`
}

const internalErrorDetail = "An unexpected server error occurred"

// publicStatus maps the text codes safe to expose to their HTTP status
var publicStatus = map[string]int{
	TextCodeValidation:            fiber.StatusBadRequest,
	TextCodeUserAlreadyExists:     fiber.StatusBadRequest,
	TextCodeInvalidCredentials:    fiber.StatusUnauthorized,
	TextCodeNotAuthenticated:      fiber.StatusUnauthorized,
	TextCodeInvalidToken:          fiber.StatusUnauthorized,
	TextCodeExpiredToken:          fiber.StatusUnauthorized,
	TextCodeInvalidOldPassword:    fiber.StatusBadRequest,
	TextCodeBadTokenSignature:     fiber.StatusBadRequest,
	TextCodeExpiredTokenSignature: fiber.StatusBadRequest,
	TextCodeUserNotFound:          fiber.StatusBadRequest,
}

// NewErrorHandler returns a fiber error handler rendering ErrorResponse bodies.
// Errors without a public text code are logged and reported as INTERNAL_ERROR.
func NewErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(ErrorResponse{
				Error:  errors.HTTPStatusToTextCode(fiberErr.Code),
				Detail: fiberErr.Message,
			})
		}

		status, body := renderError(err)
		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"error", err,
			)
		} else {
			logger.Debug("request rejected",
				"method", c.Method(),
				"path", c.Path(),
				"text_code", body.Error,
			)
		}

		return c.Status(status).JSON(body)
	}
}

func renderError(err error) (int, ErrorResponse) {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return fiber.StatusInternalServerError, ErrorResponse{Error: TextCodeInternal, Detail: internalErrorDetail}
	}

	if status, ok := publicStatus[richErr.TextCode]; ok {
		return status, ErrorResponse{Error: richErr.TextCode, Detail: errorDetail(richErr)}
	}

	if richErr.Category == errors.CategoryValidation {
		return fiber.StatusBadRequest, ErrorResponse{Error: TextCodeValidation, Detail: errorDetail(richErr)}
	}

	return fiber.StatusInternalServerError, ErrorResponse{Error: TextCodeInternal, Detail: internalErrorDetail}
}

func errorDetail(richErr *errors.Error) any {
	if fields := richErr.ValidationMap(); len(fields) > 0 {
		return fields
	}
	return richErr.Message
}

// ProtectedRoute returns the bearer token middleware backed by validator.
// Missing credentials report ERROR_NOT_AUTHENTICATED, bad tokens keep their own code.
// Listeners run after the token validates and may reject the request.
func ProtectedRoute(validator TokenValidator, contextKey string, listeners ...ValidationListener) router.MiddlewareFunc {
	if contextKey == "" {
		contextKey = DefaultContextKey
	}
	cfg := jwtware.Config{
		TokenValidator: claimsValidator{validator: validator},
		ContextKey:     contextKey,
		ErrorHandler: func(c router.Context, err error) error {
			switch {
			case errors.Is(err, jwtware.ErrJWTMissingOrMalformed):
				return ErrNotAuthenticated
			case IsTokenExpiredError(err):
				return ErrExpiredToken
			case IsInvalidTokenError(err):
				return err
			default:
				return ErrInvalidToken
			}
		},
		ContextEnricher: ContextEnricherAdapter,
	}
	RegisterValidationListeners(&cfg, listeners...)
	return jwtware.New(cfg)
}

// claimsValidator adapts TokenValidator to the middleware's claims interface
type claimsValidator struct {
	validator TokenValidator
}

func (v claimsValidator) Validate(token string) (jwtware.AuthClaims, error) {
	claims, err := v.validator.Validate(token)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// debugPayload pretty prints v with secrets masked
func debugPayload(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return print.MaybePrettyJSON(v)
	}

	for k := range fields {
		lower := strings.ToLower(k)
		if strings.Contains(lower, "password") || strings.Contains(lower, "token") {
			fields[k] = "********"
		}
	}

	return print.MaybePrettyJSON(fields)
}
