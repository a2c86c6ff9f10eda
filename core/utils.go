package core

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	nonWordRegex    = regexp.MustCompile(`[^\w.-]`)

	deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Slugify makes `s` safe for use as an object-store path segment:
// diacritics are removed, whitespace collapses to hyphens, any character
// other than word characters, hyphens and periods is stripped, and the
// result is lowered.
func Slugify(s string) string {
	s = strings.TrimSpace(s)
	if out, _, err := transform.String(deaccent, s); err == nil {
		s = out
	}
	s = whitespaceRegex.ReplaceAllString(s, "-")
	s = nonWordRegex.ReplaceAllString(s, "")
	return strings.ToLower(s)
}
