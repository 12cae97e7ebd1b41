package templates

import (
	"bytes"
	"embed"
	"fmt"
	htmpl "html/template"
	"strings"
	texttpl "text/template"
	"time"
)

//go:embed *.tmpl
var FS embed.FS

func baseFuncs() map[string]any {
	return map[string]any{
		"formatTime": func(t time.Time, layout string) string { return t.Format(layout) },
		"upper":      strings.ToUpper,
		"default": func(fallback, value any) any {
			if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
				return fallback
			}
			if value == nil {
				return fallback
			}
			return value
		},
	}
}

var layout = htmpl.Must(htmpl.New("layout.html.tmpl").Funcs(htmpl.FuncMap(baseFuncs())).ParseFS(FS, "layout.html.tmpl"))

// Render produces subject, plain-text and HTML bodies for the named template.
// Each <name>.tmpl defines a "subject" and a "text" block; the HTML body is
// the text wrapped in the shared layout.
func Render(name string, data map[string]any) (subject, text, html string, err error) {
	filename := name + ".tmpl"
	tpl, err := texttpl.New(filename).Funcs(texttpl.FuncMap(baseFuncs())).Option("missingkey=zero").ParseFS(FS, filename)
	if err != nil {
		return "", "", "", fmt.Errorf("parse %q: %w", filename, err)
	}

	subject, err = execText(tpl, "subject", data)
	if err != nil {
		return "", "", "", err
	}
	text, err = execText(tpl, "text", data)
	if err != nil {
		return "", "", "", err
	}

	var buf bytes.Buffer
	err = layout.Execute(&buf, map[string]any{
		"Subject":    subject,
		"Paragraphs": paragraphs(text),
		"Data":       data,
	})
	if err != nil {
		return "", "", "", fmt.Errorf("exec layout for %q: %w", name, err)
	}
	return subject, text, buf.String(), nil
}

func execText(tpl *texttpl.Template, block string, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, block, data); err != nil {
		return "", fmt.Errorf("exec %s/%s: %w", tpl.Name(), block, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
