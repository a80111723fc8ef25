// Package htmlutils turns HTML fragments from event listings into plain text.
//
// The package handles:
//   - Tag stripping with the x/net/html tokenizer
//   - HTML entity decoding, including &nbsp;
//   - Whitespace collapsing
package htmlutils

import (
	"strings"

	"golang.org/x/net/html"
)

// skippedElements hold text that is never shown to a reader.
var skippedElements = map[string]bool{
	"script": true,
	"style":  true,
	"head":   true,
}

// blockElements end a line of visible text.
var blockElements = map[string]bool{
	"br":         true,
	"p":          true,
	"div":        true,
	"li":         true,
	"ul":         true,
	"ol":         true,
	"tr":         true,
	"h1":         true,
	"h2":         true,
	"h3":         true,
	"h4":         true,
	"h5":         true,
	"h6":         true,
	"blockquote": true,
}

// StripTags returns the visible text of an HTML fragment with entities
// decoded. Block-level elements are separated by a space.
func StripTags(text string) string {
	if !strings.ContainsAny(text, "<&") {
		return text
	}

	var sb strings.Builder

	z := html.NewTokenizer(strings.NewReader(text))
	skipDepth := 0

	for {
		tt := z.Next()

		switch tt {
		case html.ErrorToken:
			// io.EOF or malformed input: keep what was decoded so far.
			return sb.String()
		case html.TextToken:
			if skipDepth == 0 {
				sb.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)

			if skippedElements[tag] && tt == html.StartTagToken {
				skipDepth++
			}

			if blockElements[tag] {
				sb.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)

			if skippedElements[tag] && skipDepth > 0 {
				skipDepth--
			}

			if blockElements[tag] {
				sb.WriteByte(' ')
			}
		case html.CommentToken, html.DoctypeToken:
		}
	}
}

// CollapseWhitespace replaces every run of whitespace, including
// non-breaking spaces, with a single space and trims the ends.
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ToPlainText strips tags, decodes entities and collapses whitespace.
func ToPlainText(text string) string {
	return CollapseWhitespace(StripTags(text))
}
