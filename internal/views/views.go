// Package views holds the HTML templates, embedded into the binary.
package views

import (
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"
)

//go:embed layout/*.tmpl products/*.tmpl
var files embed.FS

// Funcs are the helpers available to every template.
var Funcs = template.FuncMap{
	"price":  func(d decimal.Decimal) string { return d.StringFixed(2) },
	"add":    func(a, b int) int { return a + b },
	"sub":    func(a, b int) int { return a - b },
	"base64": func(b []byte) string { return base64.StdEncoding.EncodeToString(b) },
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"filesize": filesize,
}

// Templates parses every template. Each is addressed by its file name,
// e.g. "index.tmpl".
func Templates() (*template.Template, error) {
	t, err := template.New("").Funcs(Funcs).ParseFS(files, "layout/*.tmpl", "products/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("views: parse: %w", err)
	}
	return t, nil
}

func filesize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
