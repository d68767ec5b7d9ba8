// Package sanitize strips markup from free-text input. Lead names come off
// public web forms and follow-up notes off the operator console; stored
// values are plain text only.
package sanitize

import (
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

var entityDecoder = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&quot;", `"`,
	"&#39;", "'",
)

// Text removes HTML tags, decodes the common entities so encoded markup
// cannot survive a round trip, strips again, and trims whitespace.
func Text(s string) string {
	out := tagPattern.ReplaceAllString(s, "")
	out = entityDecoder.Replace(out)
	out = tagPattern.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}
