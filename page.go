package main

import (
	"embed"
	"encoding/base64"
	"html/template"
	"net/http"
	"os"
)

//go:embed web/index.html
var webFS embed.FS

var pageTemplate = template.Must(template.ParseFS(webFS, "web/index.html"))

// loadBackground inlines an image file as a data URL for the page background.
// An empty path disables the background.
func loadBackground(path string) (template.URL, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	mime := http.DetectContentType(b)
	return template.URL("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(b)), nil
}
