package textanalysis

import (
	"math"
	"strings"
)

// emotionScale converts the share of matching words into a score; a text in
// which a tenth of the words carry an emotion saturates at 1.
const emotionScale = 10

func (t *tables) emotions(tokens []string) Emotions {
	score := func(set wordSet) float64 {
		var n int
		for _, tok := range tokens {
			if set.has(tok) {
				n++
			}
		}
		return math.Min(float64(n)/float64(max(len(tokens), 1))*emotionScale, 1)
	}
	return Emotions{
		Joy:     score(t.joy),
		Anger:   score(t.anger),
		Fear:    score(t.fear),
		Sadness: score(t.sadness),
	}
}

// language picks the language whose common words overlap most with tokens.
// The first language in table order wins a tie; with no overlap at all the
// result is [DefaultLanguage].
func (t *tables) language(tokens []string) Language {
	best, bestScore := DefaultLanguage, 0
	for _, lang := range t.languages {
		var n int
		for _, tok := range tokens {
			if lang.words.has(tok) {
				n++
			}
		}
		if n > bestScore {
			best, bestScore = lang.code, n
		}
	}
	return best
}

// isQuestion reports whether text contains a '?' or starts with an
// interrogative, contracted forms such as "what's" included. tokens must be
// the output of [Tokenize] for text.
func (t *tables) isQuestion(text string, tokens []string) bool {
	if strings.ContainsRune(text, '?') {
		return true
	}
	if len(tokens) == 0 {
		return false
	}
	first, _, _ := strings.Cut(tokens[0], "'")
	return t.questions.has(first)
}

func statistics(wordCount, sentenceCount int) Statistics {
	return Statistics{
		WordCount:               wordCount,
		SentenceCount:           sentenceCount,
		AverageWordsPerSentence: float64(wordCount) / float64(max(sentenceCount, 1)),
	}
}
