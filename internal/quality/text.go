package quality

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText folds case and diacritics, replaces punctuation with spaces and pads the
// result with one space on each side so " kw" style patterns anchor on word starts.
func NormalizeText(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}

	var b strings.Builder
	b.Grow(len(folded) + 2)
	b.WriteByte(' ')

	lastSpace := true
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '&' {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	if !lastSpace {
		b.WriteByte(' ')
	}

	return b.String()
}

// normalizeKeyword turns a table keyword into a word-start anchored pattern.
func normalizeKeyword(kw string) string {
	n := strings.TrimRight(NormalizeText(kw), " ")
	if strings.TrimSpace(n) == "" {
		return ""
	}
	return n
}
