package bm25

import (
	"strings"
	"unicode"
)

// Tokenize lowercases text, keeps maximal runs of letters and digits and
// drops English stop words.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	out := make([]string, 0, 24)
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		token := b.String()
		b.Reset()
		if _, stop := englishStopWords[token]; stop {
			return
		}
		out = append(out, token)
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()
	return out
}
