package v1

import (
	"embed"
	"fmt"
	"html/template"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded page templates. Pages are addressed by
// file name, e.g. "index.html".
func Templates() (*template.Template, error) {
	t, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

// Setup installs the templates and form validators the handlers need.
func Setup(r *gin.Engine) error {
	if err := RegisterValidators(); err != nil {
		return err
	}
	t, err := Templates()
	if err != nil {
		return err
	}
	r.SetHTMLTemplate(t)
	return nil
}
