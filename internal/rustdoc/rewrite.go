package rustdoc

import (
	"git.home.luguber.info/inful/docchrome/internal/foundation/errors"
	"git.home.luguber.info/inful/docchrome/internal/htmlrewrite"
	"git.home.luguber.info/inful/docchrome/internal/templates"
)

// Selectors, in registration order.
const (
	HeadSelector       = "head"
	BodySelector       = "body"
	StylesheetSelector = "link[type='text/css'][href*='rustdoc']"
)

const (
	wrapperID    = "rustdoc_body_wrapper"
	wrapperClass = "container-rustdoc"
	wrapperTag   = "div"
)

// RewritePage renders the chrome fragments with ctx and rewrites html in a
// single pass bounded by maxMemory bytes. On failure no output is returned.
func RewritePage(html []byte, maxMemory int, ctx templates.Context, store TemplateStore) ([]byte, error) {
	if maxMemory <= 0 {
		return nil, errors.ValidationError("memory limit must be positive").
			WithContext("max_memory", maxMemory).
			Build()
	}
	if store == nil {
		return nil, errors.InternalError("template store is required").Build()
	}
	set := store.Load()
	if set == nil {
		return nil, errors.TemplateError("no templates loaded").Build()
	}
	frags, err := RenderFragments(set, ctx)
	if err != nil {
		return nil, err
	}
	return Rewrite(html, maxMemory, frags)
}

// Rewrite applies already rendered fragments to html.
func Rewrite(html []byte, maxMemory int, frags Fragments) ([]byte, error) {
	return htmlrewrite.RewriteBytes(Settings(maxMemory, frags), html)
}

// Settings builds the rewriter configuration for frags.
func Settings(maxMemory int, frags Fragments) htmlrewrite.Settings {
	return htmlrewrite.Settings{
		ElementContentHandlers: []htmlrewrite.ElementContentHandlers{
			{Selector: HeadSelector, Element: headHandler(frags.Head)},
			{Selector: BodySelector, Element: bodyHandler(frags.Body, frags.Header)},
			{Selector: StylesheetSelector, Element: stylesheetHandler(frags.Vendored)},
		},
		MemorySettings: htmlrewrite.MemorySettings{MaxAllowedMemoryUsage: maxMemory},
	}
}

func headHandler(head string) htmlrewrite.ElementHandler {
	return func(el *htmlrewrite.Element) error {
		el.Append(head, htmlrewrite.ContentHTML)
		return nil
	}
}

func bodyHandler(prefix, header string) htmlrewrite.ElementHandler {
	return func(el *htmlrewrite.Element) error {
		class := wrapperClass
		if existing, ok := el.GetAttribute("class"); ok {
			class = existing + " " + wrapperClass
		}

		// Setting moves an attribute to the end, so id, class, tabindex is
		// also the output order.
		if err := el.SetAttribute("id", wrapperID); err != nil {
			return err
		}
		if err := el.SetAttribute("class", class); err != nil {
			return err
		}
		if err := el.SetAttribute("tabindex", "-1"); err != nil {
			return err
		}
		if err := el.SetTagName(wrapperTag); err != nil {
			return err
		}

		el.Prepend(prefix, htmlrewrite.ContentHTML)
		el.Before("<body>", htmlrewrite.ContentHTML)
		el.Before(header, htmlrewrite.ContentHTML)
		el.After("</body>", htmlrewrite.ContentHTML)
		return nil
	}
}

func stylesheetHandler(vendored string) htmlrewrite.ElementHandler {
	return func(el *htmlrewrite.Element) error {
		el.Before(vendored, htmlrewrite.ContentHTML)
		return nil
	}
}
