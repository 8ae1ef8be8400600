package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type FinalizePasswordResetMessage struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (e FinalizePasswordResetMessage) Type() string { return "user.password_reset.finalize" }

// Validate checks the reset confirmation payload
func (e FinalizePasswordResetMessage) Validate() error {
	return validatePayload(func() error {
		return validation.ValidateStruct(&e,
			validation.Field(&e.Token, validation.Required),
			validation.Field(&e.Password, passwordRules...),
		)
	})
}

type FinalizePasswordResetHandler struct {
	repo     RepositoryManager
	tokens   *ResetTokenService
	cfg      Config
	activity ActivitySink
	logger   Logger
	hasher   PasswordAuthenticator
}

// NewFinalizePasswordResetHandler creates a handler with sane defaults.
func NewFinalizePasswordResetHandler(repo RepositoryManager, tokens *ResetTokenService, cfg Config) *FinalizePasswordResetHandler {
	cfg = cfg.WithDefaults()
	return &FinalizePasswordResetHandler{
		repo:     repo,
		tokens:   tokens,
		cfg:      cfg,
		activity: noopActivitySink{},
		logger:   defLogger{},
		hasher:   BcryptHasher{Cost: cfg.BcryptCost},
	}
}

// WithPasswordHasher overrides how the new password is hashed.
func (h *FinalizePasswordResetHandler) WithPasswordHasher(hasher PasswordAuthenticator) *FinalizePasswordResetHandler {
	if hasher != nil {
		h.hasher = hasher
	}
	return h
}

// WithActivitySink sets the sink used to emit password reset events.
func (h *FinalizePasswordResetHandler) WithActivitySink(sink ActivitySink) *FinalizePasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *FinalizePasswordResetHandler) WithLogger(logger Logger) *FinalizePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	userID, err := h.tokens.Confirm(event.Token, h.cfg.ResetTokenMaxAge)
	if err != nil {
		h.recordRejected(ctx, err)
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByIDTx(ctx, tx, userID)
		if err != nil {
			if IsRecordNotFound(err) {
				return ErrUserNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve user for password reset")
		}

		passwordHash, err := h.hasher.HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
		}

		if err := h.repo.Users().SetPasswordTx(ctx, tx, user.ID, passwordHash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password in database")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	emitActivity(ctx, h.activity, h.logger, h.cfg.now, ActivityEvent{
		EventType: ActivityEventPasswordResetSuccess,
		Actor:     ActorRef{ID: userID, Type: "user"},
		UserID:    userID,
	})

	return nil
}

func (h *FinalizePasswordResetHandler) recordRejected(ctx context.Context, err error) {
	reason := "bad_signature"
	if HasTextCode(err, TextCodeExpiredTokenSignature) {
		reason = "expired"
	}
	emitActivity(ctx, h.activity, h.logger, h.cfg.now, ActivityEvent{
		EventType: ActivityEventPasswordResetRejected,
		Actor:     ActorRef{Type: "unknown"},
		Metadata:  map[string]any{"reason": reason},
	})
}
