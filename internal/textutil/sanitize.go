package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxFileStemLength bounds model-suggested filename stems.
const maxFileStemLength = 80

// SecureFileName folds name to an ASCII stem made of letters, digits, dots,
// dashes, and underscores. Accents are stripped, whitespace becomes a single
// underscore, and everything else is dropped. Returns "" when nothing
// survives.
func SecureFileName(name string) string {
	folded := foldASCII(strings.TrimSpace(name))
	var b strings.Builder
	lastUnderscore := false
	for _, r := range folded {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case r == '_' || unicode.IsSpace(r):
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._-")
	if len(out) > maxFileStemLength {
		out = strings.TrimRight(out[:maxFileStemLength], "._-")
	}
	return out
}

func foldASCII(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return out
}
