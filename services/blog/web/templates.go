package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates
var files embed.FS

// Templates parses every page and partial. Each file defines its own name,
// e.g. {{define "posts/all_posts.html"}}.
func Templates() (*template.Template, error) {
	sub, err := fs.Sub(files, "templates")
	if err != nil {
		return nil, err
	}
	return template.New("").Funcs(template.FuncMap{
		"datetime": formatDateTime,
	}).ParseFS(sub, "*/*.html")
}
