package htmlrewrite

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// attribute is one attribute of a start tag. raw holds the original bytes,
// including the whitespace in front of the attribute, and is nil once a
// handler has set the value.
type attribute struct {
	name  string
	value string
	raw   []byte
}

// startTag is a lexed start tag. The byte slices alias the tokenizer's buffer
// and are only valid until the next call to Tokenizer.Next.
type startTag struct {
	name    string
	rawName []byte
	attrs   []attribute
	tail    []byte
}

// lexStartTag splits the raw bytes of a start tag ("<name attrs...>") into
// name, attributes and tail. It follows the same state transitions as the
// x/net tokenizer so that the spans agree with what the tokenizer accepted.
// Every byte of b ends up in exactly one of rawName, an attribute's raw or
// tail, apart from the leading '<'.
func lexStartTag(b []byte) startTag {
	var t startTag
	i := 1
	for i < len(b) && !isTagSpace(b[i]) && b[i] != '/' && b[i] != '>' {
		i++
	}
	t.rawName = b[1:i]
	t.name = lowerASCII(t.rawName)

	for {
		start := i
		for i < len(b) && isTagSpace(b[i]) {
			i++
		}
		if i >= len(b) || b[i] == '>' || b[i] == '/' && i+1 < len(b) && b[i+1] == '>' {
			t.tail = b[start:]
			return t
		}

		keyStart := i
		for i < len(b) {
			c := b[i]
			if c == '=' && i == keyStart {
				i++
				continue
			}
			if c == '=' || c == '/' || c == '>' || isTagSpace(c) {
				break
			}
			i++
		}
		keyEnd := i

		valStart, valEnd := i, i
		j := i
		for j < len(b) && isTagSpace(b[j]) {
			j++
		}
		switch {
		case j < len(b) && b[j] == '/' && (j+1 >= len(b) || b[j+1] != '>'):
			j++
		case j < len(b) && b[j] == '=':
			j++
			for j < len(b) && isTagSpace(b[j]) {
				j++
			}
			if j < len(b) {
				switch q := b[j]; q {
				case '>':
				case '"', '\'':
					j++
					valStart = j
					for j < len(b) && b[j] != q {
						j++
					}
					valEnd = j
					if j < len(b) {
						j++
					}
				default:
					valStart = j
					for j < len(b) && b[j] != '>' && !isTagSpace(b[j]) {
						j++
					}
					valEnd = j
				}
			}
		default:
			j = keyEnd
		}
		i = j

		t.attrs = append(t.attrs, attribute{
			name:  strings.ReplaceAll(lowerASCII(b[keyStart:keyEnd]), "\x00", "\ufffd"),
			value: attrValue(b[start:i], b[valStart:valEnd]),
			raw:   b[start:i],
		})
	}
}

// attrValue decodes the value of one attribute exactly as the tokenizer does
// in attribute mode: NUL becomes U+FFFD, CR and CRLF become LF, and a
// character reference without ';' that is followed by an alphanumeric or '='
// stays literal. Values with nothing to decode are returned as is; the rest
// are handed to a tokenizer over the attribute's raw bytes.
func attrValue(raw, val []byte) string {
	if bytes.IndexAny(val, "&\r\x00") < 0 {
		return string(val)
	}
	z := html.NewTokenizer(io.MultiReader(strings.NewReader("<a "), bytes.NewReader(raw), strings.NewReader(">")))
	if z.Next() != html.StartTagToken {
		return string(val)
	}
	_, v, _ := z.TagAttr()
	return string(v)
}

// lexEndTag returns the lower-cased name of an end tag ("</name ...>") and the
// offset just past the name.
func lexEndTag(b []byte) (string, int) {
	if len(b) < 2 {
		return "", len(b)
	}
	i := 2
	for i < len(b) && !isTagSpace(b[i]) && b[i] != '/' && b[i] != '>' {
		i++
	}
	return lowerASCII(b[2:i]), i
}

func isTagSpace(c byte) bool {
	switch c {
	case ' ', '\n', '\r', '\t', '\f':
		return true
	}
	return false
}

func lowerASCII(b []byte) string {
	for _, c := range b {
		if 'A' <= c && c <= 'Z' {
			out := make([]byte, len(b))
			for i, c := range b {
				if 'A' <= c && c <= 'Z' {
					c += 'a' - 'A'
				}
				out[i] = c
			}
			return string(out)
		}
	}
	return string(b)
}

// voidElements have no content and no end tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "keygen": true, "link": true,
	"meta": true, "param": true, "source": true, "track": true, "wbr": true,
}
