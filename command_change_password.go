package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type ChangePasswordMessage struct {
	UserID      string `json:"-"`
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (e ChangePasswordMessage) Type() string { return "user.change_password" }

// Validate checks the change password payload
func (e ChangePasswordMessage) Validate() error {
	return validatePayload(func() error {
		return validation.ValidateStruct(&e,
			validation.Field(&e.OldPassword, passwordRules...),
			validation.Field(&e.NewPassword, passwordRules...),
		)
	})
}

type ChangePasswordHandler struct {
	repo     RepositoryManager
	cfg      Config
	activity ActivitySink
	logger   Logger
	hasher   PasswordAuthenticator
}

// NewChangePasswordHandler creates a handler with sane defaults.
func NewChangePasswordHandler(repo RepositoryManager, cfg Config) *ChangePasswordHandler {
	cfg = cfg.WithDefaults()
	return &ChangePasswordHandler{
		repo:     repo,
		cfg:      cfg,
		activity: noopActivitySink{},
		logger:   defLogger{},
		hasher:   BcryptHasher{Cost: cfg.BcryptCost},
	}
}

// WithPasswordHasher overrides how passwords are compared and hashed.
func (h *ChangePasswordHandler) WithPasswordHasher(hasher PasswordAuthenticator) *ChangePasswordHandler {
	if hasher != nil {
		h.hasher = hasher
	}
	return h
}

// WithActivitySink sets the sink used to emit password change events.
func (h *ChangePasswordHandler) WithActivitySink(sink ActivitySink) *ChangePasswordHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ChangePasswordHandler) WithLogger(logger Logger) *ChangePasswordHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByIDTx(ctx, tx, event.UserID)
		if err != nil {
			if IsRecordNotFound(err) {
				return ErrInvalidToken
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password change")
		}

		if !user.IsActive {
			return ErrInvalidToken
		}

		if err := h.hasher.ComparePasswordAndHash(event.OldPassword, user.PasswordHash); err != nil {
			return ErrInvalidOldPassword
		}

		hash, err := h.hasher.HashPassword(event.NewPassword)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
		}

		if err := h.repo.Users().SetPasswordTx(ctx, tx, user.ID, hash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password in database")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to change password")
	}

	emitActivity(ctx, h.activity, h.logger, h.cfg.now, ActivityEvent{
		EventType: ActivityEventPasswordChanged,
		Actor:     ActorRef{ID: event.UserID, Type: "user"},
		UserID:    event.UserID,
	})

	return nil
}
