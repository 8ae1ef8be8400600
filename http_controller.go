package auth

import (
	"context"
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// RegisterAuthRoutes mounts the auth API on app
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)
	controller.RegisterRoutes(app)
	return controller
}

type AuthControllerRoutes struct {
	Login          string
	Refresh        string
	Register       string
	ChangePassword string
	ForgotPassword string
	ResetPassword  string
	Health         string
}

type AuthController struct {
	Debug      bool
	Logger     Logger
	Routes     *AuthControllerRoutes
	ContextKey string

	Auther         *Auther
	Register       *RegisterUserHandler
	ChangePassword *ChangePasswordHandler
	RequestReset   *InitializePasswordResetHandler
	ConfirmReset   *FinalizePasswordResetHandler
	HealthCheck    func(ctx context.Context) error
}

type AuthControllerOption func(*AuthController) *AuthController

// WithControllerDebug prints masked request payloads
func WithControllerDebug(debug bool) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Debug = debug
		return a
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		if logger != nil {
			a.Logger = logger
		}
		return a
	}
}

func WithControllerRoutes(routes *AuthControllerRoutes) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		if routes != nil {
			a.Routes = routes
		}
		return a
	}
}

func WithAuther(auther *Auther) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Auther = auther
		return a
	}
}

func WithRegisterHandler(h *RegisterUserHandler) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Register = h
		return a
	}
}

func WithChangePasswordHandler(h *ChangePasswordHandler) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.ChangePassword = h
		return a
	}
}

func WithPasswordResetHandlers(request *InitializePasswordResetHandler, confirm *FinalizePasswordResetHandler) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.RequestReset = request
		a.ConfirmReset = confirm
		return a
	}
}

// WithHealthCheck makes the health route report dependency failures
func WithHealthCheck(check func(ctx context.Context) error) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.HealthCheck = check
		return a
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:     defLogger{},
		ContextKey: DefaultContextKey,
		Routes: &AuthControllerRoutes{
			Login:          "/api/token/",
			Refresh:        "/api/token/refresh/",
			Register:       "/api/register",
			ChangePassword: "/api/change-password",
			ForgotPassword: "/api/forgot-password",
			ResetPassword:  "/api/reset-password",
			Health:         "/healthz",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Auther in auth controller...")
	}

	if c.Register == nil {
		panic("Missing RegisterUserHandler in auth controller...")
	}

	if c.ChangePassword == nil {
		panic("Missing ChangePasswordHandler in auth controller...")
	}

	if c.RequestReset == nil || c.ConfirmReset == nil {
		panic("Missing password reset handlers in auth controller...")
	}

	return c
}

// RegisterRoutes mounts every auth route on app
func (a *AuthController) RegisterRoutes(app RouteRegistrar) {
	app.Post(a.Routes.Login, a.LoginPost).SetName("token.obtain")
	app.Post(a.Routes.Refresh, a.RefreshPost).SetName("token.refresh")
	app.Post(a.Routes.Register, a.RegisterPost).SetName("register")
	app.Post(
		a.Routes.ChangePassword,
		a.ChangePasswordPost,
		ProtectedRoute(a.Auther, a.ContextKey),
	).SetName("change-password")
	app.Post(a.Routes.ForgotPassword, a.ForgotPasswordPost).SetName("forgot-password")
	app.Post(a.Routes.ResetPassword, a.ResetPasswordPost).SetName("reset-password")
	app.Get(a.Routes.Health, a.HealthGet).SetName("health")
}

// LoginRequest payload
type LoginRequest struct {
	EmailAddress string `json:"emailAddress"`
	Password     string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validatePayload(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.EmailAddress, validation.Required),
			validation.Field(&r.Password, validation.Required),
		)
	})
}

// RefreshRequest accepts the deprecated token field as a fallback
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	Token        string `json:"token"`
}

// Value returns the presented refresh token
func (r RefreshRequest) Value() string {
	if r.RefreshToken != "" {
		return r.RefreshToken
	}
	return r.Token
}

func (r RefreshRequest) Validate() error {
	return validatePayload(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.RefreshToken, validation.When(r.Token == "", validation.Required)),
		)
	})
}

// SessionResponse is returned by login and register
type SessionResponse struct {
	User         PublicUser `json:"user"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
}

// DetailResponse carries a human readable message
type DetailResponse struct {
	Detail string `json:"detail"`
}

func (a *AuthController) LoginPost(c router.Context) error {
	payload := new(LoginRequest)
	if err := a.bind(c, "login", payload); err != nil {
		return err
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	result, err := a.Auther.Login(c.Context(), payload.EmailAddress, payload.Password)
	if err != nil {
		return err
	}

	return c.JSON(router.StatusOK, SessionResponse{
		User:         result.User.Public(),
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
	})
}

func (a *AuthController) RefreshPost(c router.Context) error {
	payload := new(RefreshRequest)
	if err := a.bind(c, "refresh", payload); err != nil {
		return err
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	presented := payload.Value()
	access, err := a.Auther.Refresh(c.Context(), presented)
	if err != nil {
		return err
	}

	return c.JSON(router.StatusOK, TokenPair{
		AccessToken:  access,
		RefreshToken: presented,
	})
}

func (a *AuthController) RegisterPost(c router.Context) error {
	payload := new(RegisterUserMessage)
	if err := a.bind(c, "register", payload); err != nil {
		return err
	}

	// never bound from the request body
	payload.IsAdmin = false

	var user *User
	payload.OnResponse = func(resp *RegisterUserResponse) {
		user = resp.User
	}

	if err := a.Register.Execute(c.Context(), *payload); err != nil {
		return err
	}

	if user == nil {
		return errors.New("registration finished without a user", errors.CategoryInternal).
			WithTextCode(TextCodeInternal)
	}

	tokens, err := a.Auther.TokenService().IssuePair(NewIdentityFromUser(user))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, SessionResponse{
		User:         user.Public(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

func (a *AuthController) ChangePasswordPost(c router.Context) error {
	claims, ok := GetRouterClaims(c, a.ContextKey)
	if !ok {
		return ErrNotAuthenticated
	}

	payload := new(ChangePasswordMessage)
	if err := a.bind(c, "change password", payload); err != nil {
		return err
	}
	payload.UserID = claims.UserID()

	if err := a.ChangePassword.Execute(c.Context(), *payload); err != nil {
		return err
	}

	return c.Status(http.StatusNoContent).SendString("")
}

func (a *AuthController) ForgotPasswordPost(c router.Context) error {
	payload := new(InitializePasswordResetMessage)
	if err := a.bind(c, "forgot password", payload); err != nil {
		return err
	}

	detail := PasswordResetRequestedDetail
	payload.OnResponse = func(resp *InitializePasswordResetResponse) {
		detail = resp.Detail
	}

	if err := a.RequestReset.Execute(c.Context(), *payload); err != nil {
		return err
	}

	return c.JSON(router.StatusOK, DetailResponse{Detail: detail})
}

func (a *AuthController) ResetPasswordPost(c router.Context) error {
	payload := new(FinalizePasswordResetMessage)
	if err := a.bind(c, "reset password", payload); err != nil {
		return err
	}

	if err := a.ConfirmReset.Execute(c.Context(), *payload); err != nil {
		return err
	}

	return c.Status(http.StatusNoContent).SendString("")
}

func (a *AuthController) HealthGet(c router.Context) error {
	if a.HealthCheck != nil {
		if err := a.HealthCheck(c.Context()); err != nil {
			a.Logger.Error("health check failed", "error", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return c.JSON(router.StatusOK, map[string]string{"status": "ok"})
}

// bind parses the JSON body into payload, reporting parse failures as
// validation errors
func (a *AuthController) bind(c router.Context, name string, payload any) error {
	if err := c.Bind(payload); err != nil {
		a.Logger.Debug("request body rejected", "route", name, "error", err)
		return errors.New("invalid request body", errors.CategoryValidation).
			WithCode(router.StatusBadRequest).
			WithTextCode(TextCodeValidation)
	}

	if a.Debug {
		fmt.Printf("======= AUTH %s ======\n", name)
		fmt.Println(debugPayload(payload))
		fmt.Println("=========================")
	}

	return nil
}
