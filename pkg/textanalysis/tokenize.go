package textanalysis

import (
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
)

// Words splits text into word tokens using Unicode word boundaries (UAX #29).
// Segments without any letter or digit (spaces, punctuation, symbols) are
// dropped. Case is preserved.
func Words(text string) []string {
	var out []string
	seg := words.FromString(text)
	for seg.Next() {
		if tok := seg.Value(); isWord(tok) {
			out = append(out, tok)
		}
	}
	return out
}

// apostrophes folds typographic single quotes to the ASCII apostrophe the
// word lists are written with.
var apostrophes = strings.NewReplacer("\u2019", "'", "\u2018", "'")

// Tokenize returns the lower-cased word tokens of text with apostrophes
// folded. It is the tokenizer the analyzer counts and scores with.
func Tokenize(text string) []string {
	toks := Words(text)
	for i, t := range toks {
		toks[i] = apostrophes.Replace(strings.ToLower(t))
	}
	return toks
}

// Sentences splits text on '.', '!' and '?' and returns the trimmed,
// non-empty segments.
func Sentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isWord(tok string) bool {
	for _, r := range tok {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return true
		}
	}
	return false
}
