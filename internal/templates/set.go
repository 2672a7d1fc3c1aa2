package templates

import (
	"bytes"
	"html/template"
	"slices"

	derrors "git.home.luguber.info/inful/docchrome/internal/foundation/errors"
)

// Set is an immutable collection of parsed templates. It is safe for
// concurrent use.
type Set struct {
	root        *template.Template
	names       []string
	fingerprint string
}

// NewSet parses sources, keyed by template name. Templates fail on missing
// map keys instead of rendering "<no value>".
func NewSet(sources map[string]string) (*Set, error) {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	slices.Sort(names)

	root := template.New("").Funcs(funcMap()).Option("missingkey=error")
	for _, name := range names {
		if _, err := root.New(name).Parse(sources[name]); err != nil {
			return nil, derrors.WrapError(err, derrors.CategoryTemplate, "parse template").
				Fatal().
				WithContext("template", name).
				Build()
		}
	}
	return &Set{root: root, names: names, fingerprint: fingerprint(sources)}, nil
}

// Names returns the template names in sorted order.
func (s *Set) Names() []string {
	return slices.Clone(s.names)
}

// Has reports whether the set contains a template called name.
func (s *Set) Has(name string) bool {
	_, ok := slices.BinarySearch(s.names, name)
	return ok
}

// Fingerprint identifies the sources the set was parsed from.
func (s *Set) Fingerprint() string {
	return s.fingerprint
}

// Render executes the named template with ctx.
func (s *Set) Render(name string, ctx Context) (string, error) {
	if !s.Has(name) {
		return "", derrors.TemplateError("template not found").
			WithContext("template", name).
			Build()
	}
	var buf bytes.Buffer
	if err := s.root.ExecuteTemplate(&buf, name, map[string]any(ctx)); err != nil {
		return "", derrors.WrapError(err, derrors.CategoryTemplate, "render template").
			Fatal().
			WithContext("template", name).
			Build()
	}
	return buf.String(), nil
}
