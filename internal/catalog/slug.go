package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// DeriveSlug turns a display name into a URL-safe identifier: diacritics are
// folded to their base letters, everything outside [a-z0-9] becomes a word
// boundary, words are joined by single hyphens. Single stray letters, such as
// connective words left over from folding, are dropped.
func DeriveSlug(name string) string {
	lowered := strings.ToLower(name)

	folded, _, err := transform.String(foldTransformer, lowered)
	if err != nil {
		folded = lowered
	}

	var b strings.Builder
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		if len(w) > 1 || (w[0] >= '0' && w[0] <= '9') {
			kept = append(kept, w)
		}
	}

	return strings.Join(kept, "-")
}
