package htmlrewrite

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	derrors "git.home.luguber.info/inful/docchrome/internal/foundation/errors"
)

// Attribute is a name/value pair as seen by handlers. Values are unescaped.
type Attribute struct {
	Name  string
	Value string
}

// Element is the mutable view of a matched start tag handed to handlers.
// It is only valid for the duration of the handler call.
type Element struct {
	tag     startTag
	name    string
	renamed bool
	attrs   []attribute
	dirty   bool
	void    bool

	before  []string
	after   []string
	prepend []string
	appendc []string
}

func newElement(tag startTag) *Element {
	attrs := make([]attribute, len(tag.attrs))
	copy(attrs, tag.attrs)
	return &Element{
		tag:   tag,
		name:  tag.name,
		attrs: attrs,
		void:  voidElements[tag.name],
	}
}

// TagName returns the lower-cased tag name, reflecting any rename.
func (e *Element) TagName() string {
	return e.name
}

// SetTagName renames the element. The end tag, if any, is renamed too.
func (e *Element) SetTagName(name string) error {
	if !validTagName(name) {
		return derrors.AttributeError("invalid tag name").
			WithContext("tag", e.name).
			WithContext("name", name).
			Build()
	}
	e.name = strings.ToLower(name)
	e.renamed = e.name != e.tag.name
	return nil
}

// IsVoid reports whether the element has no content and no end tag (link, meta, br, ...).
func (e *Element) IsVoid() bool {
	return e.void
}

// Matches reports whether the element, with its current name and
// attributes, matches a simple selector.
func (e *Element) Matches(selector string) (bool, error) {
	if hasCombinator(selector) {
		return false, derrors.ValidationError("selector combinators are not supported").
			WithContext("selector", selector).
			Build()
	}
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return false, derrors.WrapError(err, derrors.CategoryValidation, "invalid selector").
			WithContext("selector", selector).
			Build()
	}
	t := startTag{name: e.name, attrs: e.attrs}
	return sel.Match(t.node(&html.Node{})), nil
}

// GetAttribute returns the value of the first attribute called name.
func (e *Element) GetAttribute(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, a := range e.attrs {
		if a.name == name {
			return a.value, true
		}
	}
	return "", false
}

// HasAttribute reports whether the element carries an attribute called name.
func (e *Element) HasAttribute(name string) bool {
	_, ok := e.GetAttribute(name)
	return ok
}

// Attributes returns the element's attributes in output order.
func (e *Element) Attributes() []Attribute {
	out := make([]Attribute, 0, len(e.attrs))
	seen := make(map[string]bool, len(e.attrs))
	for _, a := range e.attrs {
		if a.name == "" || seen[a.name] {
			continue
		}
		seen[a.name] = true
		out = append(out, Attribute{Name: a.name, Value: a.value})
	}
	return out
}

// SetAttribute sets name to value. Existing occurrences are removed and the
// attribute is written after the remaining ones. Any value is accepted; it is
// escaped and double-quoted on output, so bytes that are not UTF-8 pass
// through unchanged.
func (e *Element) SetAttribute(name, value string) error {
	if !validAttributeName(name) {
		return derrors.AttributeError("invalid attribute name").
			WithContext("tag", e.name).
			WithContext("attribute", name).
			Build()
	}
	name = strings.ToLower(name)
	e.removeAttribute(name)
	e.attrs = append(e.attrs, attribute{name: name, value: value})
	e.dirty = true
	return nil
}

// RemoveAttribute removes every attribute called name.
func (e *Element) RemoveAttribute(name string) {
	e.removeAttribute(strings.ToLower(name))
}

func (e *Element) removeAttribute(name string) {
	kept := e.attrs[:0]
	for _, a := range e.attrs {
		if a.name == name {
			e.dirty = true
			continue
		}
		kept = append(kept, a)
	}
	e.attrs = kept
}

// Before inserts content before the start tag. Later calls land after
// earlier ones, i.e. closer to the element.
func (e *Element) Before(content string, ct ContentType) {
	e.before = append(e.before, render(content, ct))
}

// After inserts content right after the end tag (or the start tag of a void
// element). Later calls land before earlier ones, i.e. closer to the element.
func (e *Element) After(content string, ct ContentType) {
	e.after = append([]string{render(content, ct)}, e.after...)
}

// Prepend inserts content right after the start tag. Later calls land before
// earlier ones. Ignored for void elements.
func (e *Element) Prepend(content string, ct ContentType) {
	if e.void {
		return
	}
	e.prepend = append([]string{render(content, ct)}, e.prepend...)
}

// Append inserts content right before the end tag. Later calls land after
// earlier ones. Ignored for void elements.
func (e *Element) Append(content string, ct ContentType) {
	if e.void {
		return
	}
	e.appendc = append(e.appendc, render(content, ct))
}

// modified reports whether the start tag has to be re-serialized.
func (e *Element) modified() bool {
	return e.renamed || e.dirty
}

// hasEndWork reports whether the rewriter must track the element until its end tag.
func (e *Element) hasEndWork() bool {
	return !e.void && (e.renamed || len(e.appendc) > 0 || len(e.after) > 0)
}

// writeStartTag serializes the start tag, keeping the original bytes of
// every attribute a handler did not touch.
func (e *Element) writeStartTag(buf *bytes.Buffer) {
	buf.WriteByte('<')
	if e.renamed {
		buf.WriteString(e.name)
	} else {
		buf.Write(e.tag.rawName)
	}
	for _, a := range e.attrs {
		if a.raw != nil {
			buf.Write(a.raw)
			continue
		}
		buf.WriteByte(' ')
		buf.WriteString(a.name)
		buf.WriteString(`="`)
		buf.WriteString(html.EscapeString(a.value))
		buf.WriteByte('"')
	}
	buf.Write(e.tag.tail)
}

// node returns a detached element node for selector matching. Only the first
// occurrence of an attribute counts, as in the tokenizer.
func (t startTag) node(n *html.Node) *html.Node {
	n.Type = html.ElementNode
	n.Data = t.name
	n.Attr = n.Attr[:0]
	for _, a := range t.attrs {
		if a.name == "" || hasAttr(n.Attr, a.name) {
			continue
		}
		n.Attr = append(n.Attr, html.Attribute{Key: a.name, Val: a.value})
	}
	return n
}

func hasAttr(attrs []html.Attribute, key string) bool {
	for _, a := range attrs {
		if a.Key == key {
			return true
		}
	}
	return false
}

func render(content string, ct ContentType) string {
	if ct == ContentText {
		return html.EscapeString(content)
	}
	return content
}

func validTagName(name string) bool {
	if name == "" {
		return false
	}
	c := name[0]
	if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z') {
		return false
	}
	return !strings.ContainsAny(name, " \n\r\t\f/>\x00")
}

func validAttributeName(name string) bool {
	if name == "" || !utf8.ValidString(name) {
		return false
	}
	return !strings.ContainsAny(name, " \n\r\t\f/>=\"'\x00")
}
