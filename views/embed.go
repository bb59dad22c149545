// Package views holds the server-rendered pages.
package views

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var files embed.FS

// Templates parses every page template.
func Templates() (*template.Template, error) {
	return template.New("").ParseFS(files, "templates/*.html")
}
