package mailer

import (
	"bytes"
	"embed"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-errors"
)

const templateExtension = ".html"

//go:embed templates
var templatesFS embed.FS

// TemplateRenderer renders django style email templates
type TemplateRenderer struct {
	engine *django.Engine
}

// NewTemplateRenderer loads the embedded email templates
func NewTemplateRenderer() (*TemplateRenderer, error) {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open embedded templates")
	}
	return NewTemplateRendererFS(sub)
}

// NewTemplateRendererFS loads templates from fsys, keyed by file name without extension
func NewTemplateRendererFS(fsys fs.FS) (*TemplateRenderer, error) {
	engine := django.NewFileSystem(http.FS(fsys), templateExtension)
	if err := engine.Load(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load email templates")
	}
	return &TemplateRenderer{engine: engine}, nil
}

// Render executes the named template with data
func (r *TemplateRenderer) Render(name string, data map[string]any) (string, error) {
	name = strings.TrimSuffix(name, templateExtension)

	var buf bytes.Buffer
	if err := r.engine.Render(&buf, name, data); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to render email template").
			WithMetadata(map[string]any{"template": name})
	}
	return buf.String(), nil
}
