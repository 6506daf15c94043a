package textanalysis

import (
	"math"
	"slices"
	"strings"

	"github.com/kljensen/snowball/english"
)

type wordSet map[string]struct{}

func newWordSet(words []string) wordSet {
	s := make(wordSet, len(words))
	for _, w := range words {
		s[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return s
}

func (s wordSet) has(w string) bool {
	_, ok := s[w]
	return ok
}

type languageTable struct {
	code  Language
	words wordSet
}

// tables is the compiled, read-only form of a [Lexicon].
type tables struct {
	positive  wordSet
	negative  wordSet
	negators  wordSet
	stopWords wordSet
	questions wordSet

	// valence is keyed by stem.
	valence map[string]float64

	joy, anger, fear, sadness wordSet

	languages []languageTable
}

func compile(lex *Lexicon) *tables {
	t := &tables{
		positive:  newWordSet(lex.Positive),
		negative:  newWordSet(lex.Negative),
		negators:  newWordSet(lex.Negators),
		stopWords: newWordSet(lex.StopWords),
		questions: newWordSet(lex.QuestionWords),
		joy:       newWordSet(lex.Emotions.Joy),
		anger:     newWordSet(lex.Emotions.Anger),
		fear:      newWordSet(lex.Emotions.Fear),
		sadness:   newWordSet(lex.Emotions.Sadness),
		valence:   make(map[string]float64, len(lex.Valence)),
	}

	// Different words can share a stem. Walk them in sorted order and keep the
	// strongest valence so the table does not depend on map iteration order.
	keys := make([]string, 0, len(lex.Valence))
	for w := range lex.Valence {
		keys = append(keys, w)
	}
	slices.Sort(keys)
	for _, w := range keys {
		v := float64(lex.Valence[w])
		key := stem(strings.ToLower(w))
		if prev, ok := t.valence[key]; ok && math.Abs(prev) >= math.Abs(v) {
			continue
		}
		t.valence[key] = v
	}

	for _, lang := range lex.Languages {
		t.languages = append(t.languages, languageTable{
			code:  lang.Code,
			words: newWordSet(lang.Words),
		})
	}
	return t
}

func stem(word string) string {
	return english.Stem(word, false)
}
