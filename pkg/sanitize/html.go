// Package sanitize cleans user-authored rich text before it is stored.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Policy sanitizes diary content. It allows the formatting a rich-text
// editor produces (paragraphs, emphasis, lists, links, headings) and strips
// scripts, event handlers, styles and iframes.
type Policy struct {
	p *bluemonday.Policy
}

func NewPolicy() *Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return &Policy{p: p}
}

// HTML returns the sanitized markup.
func (p *Policy) HTML(s string) string {
	return strings.TrimSpace(p.p.Sanitize(s))
}

// Text strips all markup and returns the visible text.
func Text(markup string) string {
	text := bluemonday.StrictPolicy().Sanitize(markup)
	return strings.TrimSpace(html.UnescapeString(text))
}

// IsBlank reports whether sanitized markup has no visible text, e.g. "<p>&nbsp;</p>" or "<br>".
func IsBlank(sanitized string) bool {
	return Text(sanitized) == ""
}
