package rustdoc

import (
	"git.home.luguber.info/inful/docchrome/internal/templates"
)

// Template names rendered for every page.
const (
	HeadTemplate     = "rustdoc/head.html"
	VendoredTemplate = "rustdoc/vendored.html"
	BodyTemplate     = "rustdoc/body.html"
	HeaderTemplate   = "rustdoc/header.html"
)

// TemplateStore hands out the current template snapshot.
type TemplateStore interface {
	Load() *templates.Set
}

// Fragments are the pre-rendered HTML snippets inserted into a page.
type Fragments struct {
	Head     string
	Vendored string
	Body     string
	Header   string
}

// RenderFragments renders all four fragments from one snapshot so a
// concurrent reload cannot mix template versions within a page.
func RenderFragments(set *templates.Set, ctx templates.Context) (Fragments, error) {
	var f Fragments
	for _, r := range []struct {
		name string
		dst  *string
	}{
		{HeadTemplate, &f.Head},
		{VendoredTemplate, &f.Vendored},
		{BodyTemplate, &f.Body},
		{HeaderTemplate, &f.Header},
	} {
		out, err := set.Render(r.name, ctx)
		if err != nil {
			return Fragments{}, err
		}
		*r.dst = out
	}
	return f, nil
}
