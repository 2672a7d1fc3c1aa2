package templates

import (
	"bytes"
	"fmt"
	"html/template"
	"reflect"

	"github.com/yuin/goldmark"
)

var md = goldmark.New()

func funcMap() template.FuncMap {
	return template.FuncMap{
		"markdown": renderMarkdown,
		"default":  defaultValue,
	}
}

// renderMarkdown converts CommonMark to HTML. Raw HTML in the source is
// dropped by the renderer.
func renderMarkdown(src any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(fmt.Sprint(src)), &buf); err != nil {
		return "", fmt.Errorf("markdown: %w", err)
	}
	return template.HTML(buf.String()), nil //nolint:gosec // goldmark escapes raw HTML by default
}

// defaultValue returns def when v is nil or the zero value of its type.
func defaultValue(def, v any) any {
	if v == nil {
		return def
	}
	if rv := reflect.ValueOf(v); rv.IsZero() {
		return def
	}
	return v
}
