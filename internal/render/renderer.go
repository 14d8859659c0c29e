package render

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
)

// SetupModel carries the inputs of the configuration-needed page.
type SetupModel struct {
	// Title is the page title.
	Title string

	// EnvURL and EnvKey are the names of the environment variables the
	// instructions tell the operator to set.
	EnvURL string
	EnvKey string

	// PlaceholderURL and PlaceholderKey are the sentinel values the
	// instructions tell the operator to replace.
	PlaceholderURL string
	PlaceholderKey string
}

// Renderer executes the embedded view templates.
//
// A Renderer is immutable after creation and safe for concurrent use; each
// request renders against its own ViewModel.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the template set from the given filesystem (normally
// the embedded dashboard assets). Returns an error if any template is
// missing or malformed.
func NewRenderer(assets fs.FS) (*Renderer, error) {
	tmpl, err := template.ParseFS(assets, "assets/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse view templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// View renders the live table view for the given model.
func (r *Renderer) View(w io.Writer, vm ViewModel) error {
	if err := r.tmpl.ExecuteTemplate(w, "view.html.tmpl", vm); err != nil {
		return fmt.Errorf("failed to render view: %w", err)
	}
	return nil
}

// Setup renders the configuration-needed page.
func (r *Renderer) Setup(w io.Writer, sm SetupModel) error {
	if err := r.tmpl.ExecuteTemplate(w, "setup.html.tmpl", sm); err != nil {
		return fmt.Errorf("failed to render setup page: %w", err)
	}
	return nil
}
