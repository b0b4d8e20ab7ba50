package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gorilla/csrf"
)

// View represents a collection of parsed HTML templates.
type View struct {
	templates map[string]*template.Template
}

// New creates a new View by parsing all templates from the given filesystem.
// Public pages are keyed by file name, admin pages by "admin/" + file name.
func New(templateFS fs.FS) (*View, error) {
	v := &View{
		templates: make(map[string]*template.Template),
	}

	// First, get all the layout files
	layouts, err := fs.Glob(templateFS, "templates/layouts/*.html")
	if err != nil {
		return nil, err
	}

	sets := []struct {
		pattern string
		prefix  string
	}{
		{"templates/pages/*.html", ""},
		{"templates/admin/*.html", "admin/"},
	}
	for _, set := range sets {
		pages, err := fs.Glob(templateFS, set.pattern)
		if err != nil {
			return nil, err
		}
		// For each page, parse it with the layout files
		for _, page := range pages {
			files := append(append([]string{}, layouts...), page)
			base := filepath.Base(page)
			ts, err := template.New(base).Funcs(funcs).ParseFS(templateFS, files...)
			if err != nil {
				return nil, fmt.Errorf("failed to parse template %s: %w", base, err)
			}
			v.templates[set.prefix+base] = ts
		}
	}

	return v, nil
}

// Has reports whether a template is registered under name.
func (v *View) Has(name string) bool {
	_, ok := v.templates[name]
	return ok
}

// Render executes a specific template by name. Site settings, the signed-in
// user, the flash banner and the CSRF field are added to data.
func (v *View) Render(w io.Writer, r *http.Request, name string, data map[string]interface{}) error {
	ts, ok := v.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	if data == nil {
		data = make(map[string]interface{})
	}
	ctx := r.Context()
	data["Site"] = SiteFrom(ctx)
	data["User"] = UserFrom(ctx)
	data["Path"] = r.URL.Path
	data["CSRFField"] = csrf.TemplateField(r)
	data["Year"] = time.Now().Year()
	if _, ok := data["Flash"]; !ok {
		data["Flash"] = FlashFrom(ctx)
	}

	// Execute the template into a buffer first to catch any errors
	// before writing to the response writer.
	buf := new(bytes.Buffer)
	err := ts.Execute(buf, data)
	if err != nil {
		return err
	}

	_, err = buf.WriteTo(w)
	return err
}
