// Package text provides the transcript normalization used for command
// matching and accent/case-insensitive name comparison.
package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Normalize lowercases, strips diacritics, collapses internal whitespace and
// trims. It is idempotent: Normalize(Normalize(s)) == Normalize(s). Both the
// command patterns and stored-name lookups rely on this exact canonical form.
func Normalize(raw string) string {
	folded, _, err := transform.String(foldTransformer, raw)
	if err != nil {
		folded = raw
	}
	folded = strings.ToLower(folded)
	return strings.Join(strings.Fields(folded), " ")
}

// Equal reports whether two names are the same under normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
