package htmlrewrite

import (
	"bufio"
	"bytes"
	"errors"
	"io"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	derrors "git.home.luguber.info/inful/docchrome/internal/foundation/errors"
)

// sniffLen is how much input is inspected for a byte order mark.
const sniffLen = 1024

// frameOverhead approximates the bytes held by one open-element frame.
const frameOverhead = 64

type compiledHandler struct {
	selector string
	sel      cascadia.Sel
	handle   ElementHandler
}

// frame is a matched element whose end tag still needs work.
type frame struct {
	name    string
	rename  string
	depth   int
	appendc []string
	after   []string
	cost    int
}

// Rewriter performs one streaming rewrite pass. It is not safe for
// concurrent use and can only be run once.
type Rewriter struct {
	handlers []compiledHandler
	out      io.Writer
	mem      memoryLimiter
	stack    []*frame
	buf      bytes.Buffer
	node     html.Node
	used     bool

	// templates counts open <template> elements; their content is inert.
	templates int
}

// New compiles the selectors in settings and returns a Rewriter writing to out.
func New(settings Settings, out io.Writer) (*Rewriter, error) {
	limit := settings.MemorySettings.MaxAllowedMemoryUsage
	if limit <= 0 {
		return nil, derrors.ValidationError("memory limit must be positive").
			WithContext("limit", limit).
			Build()
	}
	if out == nil {
		return nil, derrors.ValidationError("output writer is required").Build()
	}

	handlers := make([]compiledHandler, 0, len(settings.ElementContentHandlers))
	for _, h := range settings.ElementContentHandlers {
		if h.Element == nil {
			return nil, derrors.ValidationError("element handler is required").
				WithContext("selector", h.Selector).
				Build()
		}
		if hasCombinator(h.Selector) {
			return nil, derrors.ValidationError("selector combinators are not supported").
				WithContext("selector", h.Selector).
				Build()
		}
		sel, err := cascadia.Parse(h.Selector)
		if err != nil {
			return nil, derrors.WrapError(err, derrors.CategoryValidation, "invalid selector").
				Fatal().
				WithContext("selector", h.Selector).
				Build()
		}
		handlers = append(handlers, compiledHandler{selector: h.Selector, sel: sel, handle: h.Element})
	}

	return &Rewriter{
		handlers: handlers,
		out:      out,
		mem:      memoryLimiter{limit: limit},
	}, nil
}

// RewriteBytes rewrites src in one pass and returns the output. On failure
// the output is discarded and nil is returned with the error.
func RewriteBytes(settings Settings, src []byte) ([]byte, error) {
	var out bytes.Buffer
	rw, err := New(settings, &out)
	if err != nil {
		return nil, err
	}
	if err := rw.Rewrite(bytes.NewReader(src)); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Rewrite consumes src to EOF, writing the transformed document to the
// Rewriter's output. Output written before a failure is not valid.
func (rw *Rewriter) Rewrite(src io.Reader) error {
	if rw.used {
		return derrors.InternalError("rewriter already used").Build()
	}
	rw.used = true

	br := bufio.NewReaderSize(src, sniffLen)
	if err := checkEncoding(br); err != nil {
		return err
	}

	z := html.NewTokenizer(br)
	for {
		avail := rw.mem.available()
		if avail <= 0 {
			return memoryLimitExceeded(rw.mem.limit, nil)
		}
		z.SetMaxBuf(avail)

		var err error
		switch z.Next() {
		case html.ErrorToken:
			return rw.finish(z)
		case html.StartTagToken, html.SelfClosingTagToken:
			err = rw.startTag(z.Raw())
		case html.EndTagToken:
			err = rw.endTag(z.Raw())
		default:
			err = rw.write(z.Raw())
		}
		if err != nil {
			return err
		}
	}
}

func (rw *Rewriter) finish(z *html.Tokenizer) error {
	err := z.Err()
	switch {
	case errors.Is(err, io.EOF):
		// An unterminated tag at EOF is not a token; pass its bytes through.
		if err := rw.write(z.Raw()); err != nil {
			return err
		}
		for len(rw.stack) > 0 {
			if err := rw.closeFrame(len(rw.stack)-1, nil, 0); err != nil {
				return err
			}
		}
		return nil
	case errors.Is(err, html.ErrBufferExceeded):
		return memoryLimitExceeded(rw.mem.limit, err)
	default:
		return derrors.WrapError(err, derrors.CategoryMarkup, "input could not be tokenized").Fatal().Build()
	}
}

func (rw *Rewriter) startTag(raw []byte) error {
	tag := lexStartTag(raw)

	switch {
	case tag.name == "template":
		rw.templates++
	case tag.name == "body" && rw.templates == 0:
		if i := rw.findFrame("head"); i >= 0 && rw.stack[i].depth == 0 {
			if err := rw.closeFrame(i, nil, 0); err != nil {
				return err
			}
		}
	}
	if !voidElements[tag.name] {
		for _, f := range rw.stack {
			if f.name == tag.name {
				f.depth++
			}
		}
	}

	var el *Element
	if len(rw.handlers) > 0 {
		n := tag.node(&rw.node)
		for _, h := range rw.handlers {
			if !h.sel.Match(n) {
				continue
			}
			if el == nil {
				el = newElement(tag)
			}
			if err := h.handle(el); err != nil {
				return handlerFailure(err, h.selector)
			}
		}
	}
	if el == nil {
		return rw.write(raw)
	}
	return rw.emitElement(el, raw)
}

func (rw *Rewriter) emitElement(el *Element, raw []byte) error {
	for _, c := range el.before {
		if err := rw.writeString(c); err != nil {
			return err
		}
	}

	if el.modified() {
		rw.buf.Reset()
		el.writeStartTag(&rw.buf)
		n := rw.buf.Len()
		if err := rw.mem.reserve(n); err != nil {
			return err
		}
		err := rw.write(rw.buf.Bytes())
		rw.mem.release(n)
		if err != nil {
			return err
		}
	} else if err := rw.write(raw); err != nil {
		return err
	}

	if el.void {
		for _, c := range el.after {
			if err := rw.writeString(c); err != nil {
				return err
			}
		}
		return nil
	}
	for _, c := range el.prepend {
		if err := rw.writeString(c); err != nil {
			return err
		}
	}
	if !el.hasEndWork() {
		return nil
	}

	f := &frame{name: el.tag.name, appendc: el.appendc, after: el.after}
	if el.renamed {
		f.rename = el.name
	}
	f.cost = frameOverhead + len(f.name) + len(f.rename)
	if err := rw.mem.reserve(f.cost); err != nil {
		return err
	}
	rw.stack = append(rw.stack, f)
	return nil
}

func (rw *Rewriter) endTag(raw []byte) error {
	name, nameEnd := lexEndTag(raw)
	if name == "template" && rw.templates > 0 {
		rw.templates--
	}

	if name == "html" && rw.findFrame("html") < 0 {
		for len(rw.stack) > 0 {
			if err := rw.closeFrame(len(rw.stack)-1, nil, 0); err != nil {
				return err
			}
		}
		return rw.write(raw)
	}

	i := rw.findFrame(name)
	if i < 0 {
		return rw.write(raw)
	}
	if f := rw.stack[i]; f.depth > 0 {
		f.depth--
		return rw.write(raw)
	}
	return rw.closeFrame(i, raw, nameEnd)
}

// closeFrame flushes the end-side work of stack[i]. raw is the element's end
// tag, or nil when the end tag is implied. A renamed element always gets an
// explicit end tag, since the new name may not be implied by the parser.
func (rw *Rewriter) closeFrame(i int, raw []byte, nameEnd int) error {
	f := rw.stack[i]
	rw.stack = append(rw.stack[:i], rw.stack[i+1:]...)
	defer rw.mem.release(f.cost)

	for _, c := range f.appendc {
		if err := rw.writeString(c); err != nil {
			return err
		}
	}
	switch {
	case raw == nil && f.rename != "":
		if err := rw.writeString("</" + f.rename + ">"); err != nil {
			return err
		}
	case raw != nil:
		if f.rename != "" {
			if err := rw.writeString("</" + f.rename); err != nil {
				return err
			}
			if err := rw.write(raw[nameEnd:]); err != nil {
				return err
			}
		} else if err := rw.write(raw); err != nil {
			return err
		}
	}
	for _, c := range f.after {
		if err := rw.writeString(c); err != nil {
			return err
		}
	}
	return nil
}

func (rw *Rewriter) findFrame(name string) int {
	for i := len(rw.stack) - 1; i >= 0; i-- {
		if rw.stack[i].name == name {
			return i
		}
	}
	return -1
}

func (rw *Rewriter) write(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if _, err := rw.out.Write(b); err != nil {
		return derrors.WrapError(err, derrors.CategoryInternal, "write output").Fatal().Build()
	}
	return nil
}

func (rw *Rewriter) writeString(s string) error {
	if s == "" {
		return nil
	}
	if _, err := io.WriteString(rw.out, s); err != nil {
		return derrors.WrapError(err, derrors.CategoryInternal, "write output").Fatal().Build()
	}
	return nil
}

// checkEncoding rejects input that starts with a UTF-16 byte order mark; the
// tokenizer only understands ASCII-compatible encodings.
func checkEncoding(br *bufio.Reader) error {
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) {
		return derrors.WrapError(err, derrors.CategoryMarkup, "input could not be read").Fatal().Build()
	}
	_, name, _ := charset.DetermineEncoding(head, "")
	switch name {
	case "utf-16be", "utf-16le":
		return derrors.MarkupError("input is not in an ASCII-compatible encoding").
			WithContext("encoding", name).
			Build()
	}
	return nil
}

func handlerFailure(err error, selector string) error {
	if derrors.IsClassified(err) {
		return err
	}
	return derrors.WrapError(err, derrors.CategoryHandler, "element handler failed").
		Fatal().
		WithContext("selector", selector).
		Build()
}

// hasCombinator reports whether a selector relates elements to each other
// (descendant, child or sibling combinators). Brackets, parentheses and
// quoted strings are skipped; a comma-separated group is allowed.
func hasCombinator(sel string) bool {
	depth := 0
	var quote byte
	prevSpace := false
	seenSimple := false
	for i := 0; i < len(sel); i++ {
		c := sel[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch {
		case c == '"' || c == '\'':
			quote = c
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			depth--
		case depth > 0:
		case c == '>' || c == '+' || c == '~':
			return true
		case c == ',':
			seenSimple = false
			prevSpace = false
			continue
		case isTagSpace(c):
			prevSpace = seenSimple
			continue
		}
		if prevSpace && depth >= 0 {
			return true
		}
		seenSimple = true
	}
	return false
}
