package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var textPolicy = bluemonday.StrictPolicy()

// maxSanitizePasses bounds how many layers of entity encoding are peeled off.
const maxSanitizePasses = 8

// cleanText strips markup from user-entered text and trims it.
// Entities are decoded before each sanitize pass, so encoded markup is removed
// rather than revived. The result is the policy's escaped output: it never
// holds a literal '<' or '>'.
func cleanText(s string) string {
	out := textPolicy.Sanitize(s)
	for i := 0; i < maxSanitizePasses; i++ {
		next := textPolicy.Sanitize(html.UnescapeString(out))
		if next == out {
			break
		}
		out = next
	}
	return strings.TrimSpace(out)
}
