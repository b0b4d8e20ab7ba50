// Package web embeds the site's templates and static assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed all:templates
var templateFS embed.FS

//go:embed all:static
var staticFS embed.FS

// TemplateFS holds layouts/, pages/ and admin/ at its root.
var TemplateFS fs.FS = templateFS

// Static returns the asset tree rooted at static/, ready to serve under /static/.
func Static() (fs.FS, error) {
	return fs.Sub(staticFS, "static")
}
