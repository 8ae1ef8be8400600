package mailer

import (
	"context"

	auth "github.com/goliatone/go-auth-api"
)

// LogMailer renders emails and writes them to the logger instead of sending
type LogMailer struct {
	renderer *TemplateRenderer
	logger   auth.Logger
}

var _ auth.Mailer = (*LogMailer)(nil)

func NewLogMailer(renderer *TemplateRenderer, logger auth.Logger) (*LogMailer, error) {
	if renderer == nil {
		var err error
		if renderer, err = NewTemplateRenderer(); err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = auth.NewLogger("mailer", false).GetLogger("mailer")
	}
	return &LogMailer{renderer: renderer, logger: logger}, nil
}

func (m *LogMailer) Send(_ context.Context, to, subject, template string, data map[string]any) error {
	body, err := m.renderer.Render(template, data)
	if err != nil {
		return err
	}
	m.logger.Info("email", "to", to, "subject", subject, "template", template)
	m.logger.Debug("email body", "body", body)
	return nil
}
