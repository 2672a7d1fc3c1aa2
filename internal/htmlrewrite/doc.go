// Package htmlrewrite implements a single-pass, bounded-memory HTML rewriter.
//
// Input is tokenized with golang.org/x/net/html and forwarded to an io.Writer
// byte for byte. Start tags are matched against CSS selectors compiled with
// cascadia; when a selector matches, its handler receives an *Element that can
// read and set attributes, rename the tag, and queue content before, after,
// or inside the element. No document tree is built: each start tag is matched
// on its own, so selectors with combinators are rejected.
//
// Memory used by the pass (the tokenizer's current token plus buffers owned by
// the rewriter) is capped by MemorySettings.MaxAllowedMemoryUsage. Exceeding the
// cap aborts the pass with a memory_limit ClassifiedError. The tokenizer holds
// each token whole, so a single text run, comment or raw-text element (an
// inline <script> or <style>) larger than the cap also fails the pass.
//
// Typical use:
//
//	out, err := htmlrewrite.RewriteBytes(htmlrewrite.Settings{
//		ElementContentHandlers: []htmlrewrite.ElementContentHandlers{
//			{Selector: "head", Element: func(el *htmlrewrite.Element) error {
//				el.Append(`<link rel="stylesheet" href="/site.css">`, htmlrewrite.ContentHTML)
//				return nil
//			}},
//		},
//		MemorySettings: htmlrewrite.MemorySettings{MaxAllowedMemoryUsage: 5 << 20},
//	}, page)
package htmlrewrite
