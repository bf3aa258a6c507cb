package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letters that do not decompose under NFD and need explicit folding.
var foldReplacer = strings.NewReplacer(
	"ł", "l", "Ł", "L",
	"đ", "d", "Đ", "D",
	"ø", "o", "Ø", "O",
	"ß", "ss",
	"æ", "ae", "Æ", "AE",
	"œ", "oe", "Œ", "OE",
)

// StripDiacritics removes combining marks ("Źródło" -> "Zrodlo").
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return foldReplacer.Replace(out)
}

// NormalizeName folds a header or entity name into its comparison form:
// diacritics stripped, lowercased, non-alphanumeric runs collapsed to "_",
// leading and trailing "_" trimmed.
func NormalizeName(s string) string {
	return slug(s, '_')
}

// Slug builds a URL-style slug using "-" as the separator. Used for
// generated variant SKUs.
func Slug(s string) string {
	return slug(s, '-')
}

func slug(s string, sep rune) string {
	s = strings.ToLower(StripDiacritics(s))

	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteRune(sep)
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}
