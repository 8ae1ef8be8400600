package auth

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// userIDFromEmail derives the stable id used when UseHashid is on
var userIDFromEmail = func(email string) (uuid.UUID, error) {
	return hashid.NewUUID(email)
}

type RegisterUserMessage struct {
	EmailAddress string `json:"emailAddress"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Password     string `json:"password"`
	// IsAdmin is only set by operator tooling, never bound from requests
	IsAdmin    bool                        `json:"-"`
	OnResponse func(*RegisterUserResponse) `json:"-"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate checks the registration payload
func (e RegisterUserMessage) Validate() error {
	return validatePayload(func() error {
		return validation.ValidateStruct(&e,
			validation.Field(&e.EmailAddress, emailRules...),
			validation.Field(&e.FirstName, validation.Required, validation.Length(minNameLength, maxNameLength)),
			validation.Field(&e.LastName, validation.Length(minNameLength, maxNameLength)),
			validation.Field(&e.Password, passwordRules...),
		)
	})
}

// normalize trims the free text fields so validation sees stored values
func (e *RegisterUserMessage) normalize() {
	e.EmailAddress = strings.TrimSpace(e.EmailAddress)
	e.FirstName = strings.TrimSpace(e.FirstName)
	e.LastName = strings.TrimSpace(e.LastName)
}

type RegisterUserResponse struct {
	User *User
}

type RegisterUserHandler struct {
	repo     RepositoryManager
	cfg      Config
	activity ActivitySink
	logger   Logger
	hasher   PasswordAuthenticator
}

// NewRegisterUserHandler creates a handler with sane defaults.
func NewRegisterUserHandler(repo RepositoryManager, cfg Config) *RegisterUserHandler {
	cfg = cfg.WithDefaults()
	return &RegisterUserHandler{
		repo:     repo,
		cfg:      cfg,
		activity: noopActivitySink{},
		logger:   defLogger{},
		hasher:   BcryptHasher{Cost: cfg.BcryptCost},
	}
}

// WithPasswordHasher overrides how new passwords are hashed.
func (h *RegisterUserHandler) WithPasswordHasher(hasher PasswordAuthenticator) *RegisterUserHandler {
	if hasher != nil {
		h.hasher = hasher
	}
	return h
}

// WithActivitySink sets the sink used to emit registration events.
func (h *RegisterUserHandler) WithActivitySink(sink ActivitySink) *RegisterUserHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	event.normalize()
	if err := event.Validate(); err != nil {
		return err
	}

	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	email := event.EmailAddress

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Users().GetByEmailTx(ctx, tx, email); err == nil {
			return ErrUserAlreadyExists
		} else if !IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check existing user")
		}

		hash, err := h.hasher.HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.EmailAddress = email
		user.FirstName = event.FirstName
		user.LastName = event.LastName
		user.IsActive = true
		user.IsAdmin = event.IsAdmin
		if h.cfg.UseHashid {
			id, err := userIDFromEmail(email)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to derive user id from email")
			}
			user.ID = id
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			if IsUserAlreadyExists(err) {
				return ErrUserAlreadyExists
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	emitActivity(ctx, h.activity, h.logger, h.cfg.now, ActivityEvent{
		EventType: ActivityEventUserRegistered,
		Actor:     ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:    user.ID.String(),
		Metadata:  map[string]any{"is_admin": user.IsAdmin},
	})

	if event.OnResponse != nil {
		event.OnResponse(&RegisterUserResponse{User: user})
	}

	return nil
}
