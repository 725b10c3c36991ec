package merge

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	stripPolicy  = bluemonday.StrictPolicy()
)

// CleanText collapses newlines and whitespace runs, strips inline markup such as
// <i> or <font> tags, and normalizes to NFC.
func CleanText(s string) string {
	if strings.ContainsAny(s, "<&") {
		s = html.UnescapeString(stripPolicy.Sanitize(s))
	}
	s = norm.NFC.String(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
