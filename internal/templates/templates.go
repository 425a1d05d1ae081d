// Package templates holds the embedded page templates.
package templates

import (
	"embed"
	"html/template"
	"time"
	"unicode/utf8"
)

//go:embed html/*.html
var files embed.FS

var funcs = template.FuncMap{
	"truncate": func(s string, n int) string {
		if utf8.RuneCountInString(s) <= n {
			return s
		}
		r := []rune(s)
		return string(r[:n]) + "…"
	},
	"date": func(t time.Time) string {
		return t.Format("02 Jan 2006")
	},
}

// Load parses every page and partial into one set, ready for
// gin.Engine.SetHTMLTemplate.
func Load() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(files, "html/*.html")
}
