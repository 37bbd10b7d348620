// Package web embeds the HTML home page served at /.
package web

import (
	"embed"
	"html/template"
	"io"
)

//go:embed index.html
var files embed.FS

var index = template.Must(template.ParseFS(files, "index.html"))

// IndexData is what the home page template renders.
type IndexData struct {
	BaseURL string
}

// RenderIndex writes the home page to w.
func RenderIndex(w io.Writer, data IndexData) error {
	return index.Execute(w, data)
}
