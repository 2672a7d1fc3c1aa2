package htmlrewrite

// ContentType selects how inserted content is written to the output.
type ContentType int

const (
	// ContentHTML inserts the content verbatim.
	ContentHTML ContentType = iota
	// ContentText escapes the content before inserting it.
	ContentText
)

// ElementHandler is invoked when an element's start tag matches a selector.
type ElementHandler func(el *Element) error

// ElementContentHandlers binds one selector to its element handler.
type ElementContentHandlers struct {
	Selector string
	Element  ElementHandler
}

// MemorySettings bounds the working memory of a rewrite pass.
type MemorySettings struct {
	// MaxAllowedMemoryUsage is the ceiling in bytes. It must be positive.
	MaxAllowedMemoryUsage int
}

// Settings configures a Rewriter. Handlers run in slice order when several
// selectors match the same element.
type Settings struct {
	ElementContentHandlers []ElementContentHandlers
	MemorySettings         MemorySettings
}
