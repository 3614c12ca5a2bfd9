package extract

import (
	"regexp"
	"strings"
)

var (
	slugSpace   = regexp.MustCompile(`[\s\p{Zs}\x{FEFF}]+`)
	slugInvalid = regexp.MustCompile(`[^\w-]+`)
)

// Slug derives a fragment identifier from heading text: lowercase, runs of
// whitespace become one hyphen, and everything except ASCII word
// characters and hyphens is removed. Different headings may share a slug.
func Slug(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = slugSpace.ReplaceAllString(s, "-")
	return slugInvalid.ReplaceAllString(s, "")
}
