package application

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strictPolicy strips every HTML element. Threads renders plain text only, so
// any markup the model emits would be posted literally.
var strictPolicy = bluemonday.StrictPolicy()

// PlainText removes markup from s and returns the trimmed plain text.
// altered is true when sanitizing changed anything beyond surrounding
// whitespace. The strict policy reads any "<" followed by a letter as a tag
// opening, so plain prose such as "price<budget" also counts as altered.
func PlainText(s string) (text string, altered bool) {
	text = strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
	return text, text != strings.TrimSpace(s)
}
