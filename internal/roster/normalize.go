package roster

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var punctReplacer = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\f", "\n",
	"\u2028", "\n",
	"\u00a0", " ",
	"\u202f", " ",
	"\u2007", " ",
	"\u2013", "-",
	"\u2014", "-",
	"\u2212", "-",
)

// Normalize canonicalizes the whitespace and dash variants that PDF text
// extraction produces so the matchers only ever see plain spaces, hyphens
// and "\n" line breaks. Invalid UTF-8 becomes U+FFFD.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToValidUTF8(text, "\uFFFD")
	return punctReplacer.Replace(norm.NFC.String(text))
}

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// fold lowercases and strips diacritics for vocabulary comparison
// (e.g. "Coördinatie" -> "coordinatie").
func fold(s string) string {
	out, _, err := transform.String(foldAccents, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// collapseSpace trims s and collapses every whitespace run to one space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateRunes caps s at max runes.
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return strings.TrimSpace(s[:i])
		}
		n++
	}
	return s
}

// firstWords returns at most n whitespace-separated words of s.
func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func titleCase(s string) string {
	return cases.Title(language.Dutch).String(s)
}
