package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
)

const (
	// PasswordResetTemplate is the mail template rendered for reset links
	PasswordResetTemplate = "password_reset.html"
	// PasswordResetSubject is the subject line of reset emails
	PasswordResetSubject = "Password reset"
	// PasswordResetRequestedDetail is returned whether or not the account exists
	PasswordResetRequestedDetail = "If an account exists for this email address, a password reset link has been sent."

	defaultMailTimeout = 30 * time.Second
)

type InitializePasswordResetMessage struct {
	EmailAddress string                                      `json:"emailAddress"`
	BaseURL      string                                      `json:"base_url"`
	OnResponse   func(resp *InitializePasswordResetResponse) `json:"-"`
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

// Validate checks the reset request payload
func (p InitializePasswordResetMessage) Validate() error {
	return validatePayload(func() error {
		return validation.ValidateStruct(&p,
			validation.Field(&p.EmailAddress, emailRules...),
			validation.Field(&p.BaseURL, validation.Required, is.RequestURL),
		)
	})
}

func (p *InitializePasswordResetMessage) normalize() {
	p.EmailAddress = strings.TrimSpace(p.EmailAddress)
	p.BaseURL = strings.TrimSpace(p.BaseURL)
}

// InitializePasswordResetResponse never says whether a mail was sent
type InitializePasswordResetResponse struct {
	Detail string
}

type InitializePasswordResetHandler struct {
	repo        RepositoryManager
	tokens      *ResetTokenService
	mailer      Mailer
	cfg         Config
	activity    ActivitySink
	logger      Logger
	mailTimeout time.Duration
	inflight    sync.WaitGroup
}

// NewInitializePasswordResetHandler creates a handler with sane defaults.
func NewInitializePasswordResetHandler(repo RepositoryManager, tokens *ResetTokenService, mailer Mailer, cfg Config) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:        repo,
		tokens:      tokens,
		mailer:      mailer,
		cfg:         cfg.WithDefaults(),
		activity:    noopActivitySink{},
		logger:      defLogger{},
		mailTimeout: defaultMailTimeout,
	}
}

// WithActivitySink sets the sink used to emit password reset events.
func (h *InitializePasswordResetHandler) WithActivitySink(sink ActivitySink) *InitializePasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithMailTimeout bounds each background mail delivery.
func (h *InitializePasswordResetHandler) WithMailTimeout(d time.Duration) *InitializePasswordResetHandler {
	if d > 0 {
		h.mailTimeout = d
	}
	return h
}

// Wait blocks until every dispatched reset mail finished
func (h *InitializePasswordResetHandler) Wait() {
	h.inflight.Wait()
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	event.normalize()
	if err := event.Validate(); err != nil {
		return err
	}

	resp := &InitializePasswordResetResponse{Detail: PasswordResetRequestedDetail}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByEmail(ctx, event.EmailAddress)
	switch {
	case err == nil && user.IsActive:
		if err := h.dispatch(ctx, user, event.BaseURL); err != nil {
			return err
		}
	case err == nil:
		h.logger.Debug("password reset requested for inactive user", "user_id", user.ID.String())
	case IsRecordNotFound(err):
		h.logger.Debug("password reset requested for unknown email")
	default:
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *InitializePasswordResetHandler) dispatch(ctx context.Context, user *User, baseURL string) error {
	token, err := h.tokens.Issue(user.ID.String())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue password reset token")
	}

	resetURL := BuildResetURL(baseURL, token)
	data := map[string]any{
		"user": map[string]any{
			"firstName":    user.FirstName,
			"emailAddress": user.EmailAddress,
		},
		"reset_url": resetURL,
	}

	emitActivity(ctx, h.activity, h.logger, h.cfg.now, ActivityEvent{
		EventType: ActivityEventPasswordResetRequest,
		Actor:     ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:    user.ID.String(),
	})

	if h.mailer == nil {
		h.logger.Warn("no mailer configured, password reset email dropped", "user_id", user.ID.String())
		return nil
	}

	mailCtx := context.WithoutCancel(ctx)
	to := user.EmailAddress
	userID := user.ID.String()

	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()

		sendCtx, cancel := context.WithTimeout(mailCtx, h.mailTimeout)
		defer cancel()

		if err := h.mailer.Send(sendCtx, to, PasswordResetSubject, PasswordResetTemplate, data); err != nil {
			h.logger.Error("failed to send password reset email", "user_id", userID, "error", err)
			return
		}
		h.logger.Info("password reset email sent", "user_id", userID)
	}()

	return nil
}

// BuildResetURL appends token to baseURL, forcing a single trailing slash
func BuildResetURL(baseURL, token string) string {
	baseURL = strings.TrimSpace(baseURL)
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return baseURL + token
}
