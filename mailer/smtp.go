package mailer

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	auth "github.com/goliatone/go-auth-api"
	"github.com/goliatone/go-errors"
	"github.com/wneessen/go-mail"
)

// Config holds SMTP delivery settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// RequireTLS refuses to send over a connection that cannot be upgraded
	RequireTLS bool
	Timeout    time.Duration
}

func (c Config) Validate() error {
	if err := errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&c,
			validation.Field(&c.Host, validation.Required),
			validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
			validation.Field(&c.From, validation.Required, is.EmailFormat),
		)
	}, "invalid smtp configuration"); err != nil {
		return err
	}
	return nil
}

// SMTPMailer renders templates and delivers them over SMTP
type SMTPMailer struct {
	client   *mail.Client
	from     string
	renderer *TemplateRenderer
	logger   auth.Logger
}

var _ auth.Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer builds a mailer for cfg. A nil renderer uses the embedded templates.
func NewSMTPMailer(cfg Config, renderer *TemplateRenderer, logger auth.Logger) (*SMTPMailer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if renderer == nil {
		var err error
		if renderer, err = NewTemplateRenderer(); err != nil {
			return nil, err
		}
	}

	if logger == nil {
		logger = auth.NewLogger("mailer", false).GetLogger("mailer")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	policy := mail.TLSOpportunistic
	if cfg.RequireTLS {
		policy = mail.TLSMandatory
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(policy),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create smtp client")
	}

	return &SMTPMailer{
		client:   client,
		from:     cfg.From,
		renderer: renderer,
		logger:   logger,
	}, nil
}

// Send renders template with data and delivers it to to
func (m *SMTPMailer) Send(ctx context.Context, to, subject, template string, data map[string]any) error {
	body, err := m.renderer.Render(template, data)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "invalid sender address")
	}
	if err := msg.To(to); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "invalid recipient address")
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return errors.Wrap(err, errors.CategoryExternal, "failed to deliver email").
			WithMetadata(map[string]any{"template": template})
	}

	m.logger.Debug("email delivered", "template", template, "subject", subject)
	return nil
}
