package screening

import (
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var zeroWidth = runes.Predicate(func(r rune) bool {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
		return true
	}
	return false
})

// Normalize decomposes compatibility forms, strips combining marks and zero-width
// characters, then transliterates what is left to its closest ASCII rendering.
// Case is preserved so that case-sensitive address shapes still match.
func Normalize(text string) string {
	t := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(zeroWidth),
	)
	stripped, _, err := transform.String(t, text)
	if err != nil {
		stripped = text
	}
	return unidecode.Unidecode(stripped)
}
