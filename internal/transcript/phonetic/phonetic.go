// Package phonetic matches misheard words against a vocabulary of known terms
// by pronunciation.
//
// A term is a candidate when its Double Metaphone codes share at least one
// code with the input. Candidates are ranked by Jaro-Winkler similarity on
// the lower-cased strings and accepted above the phonetic threshold. When no
// phonetic candidate exists, a stricter fuzzy threshold applies to plain
// Jaro-Winkler similarity instead.
//
// Multi-word terms ("Tower Bridge", "Ada Lovelace") are compared in three
// ways and the best score wins: whole string, spaces removed, and best
// word-to-word pair.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// Option configures a [Matcher].
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for a phonetic
// candidate. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score used when no term
// shares a phonetic code with the input. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.fuzzyThreshold = threshold
	}
}

// Matcher is read-only after [New] and safe for concurrent use.
type Matcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a [Matcher] with the default thresholds unless overridden.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Term is a vocabulary entry with its comparison data precomputed.
type Term struct {
	Name   string
	lower  string
	tokens []string
	codes  map[string]struct{}
}

// TermSet is a prepared vocabulary. Build it once with [Prepare] and reuse it
// across calls to [Matcher.MatchPrepared]; it is immutable.
type TermSet struct {
	terms    []Term
	maxWords int
}

// Prepare computes phonetic codes for every non-blank term in vocabulary.
func Prepare(vocabulary []string) *TermSet {
	ts := &TermSet{terms: make([]Term, 0, len(vocabulary))}
	for _, name := range vocabulary {
		lower := strings.ToLower(strings.TrimSpace(name))
		if lower == "" {
			continue
		}
		tokens := strings.Fields(lower)
		ts.terms = append(ts.terms, Term{
			Name:   strings.TrimSpace(name),
			lower:  lower,
			tokens: tokens,
			codes:  codesForTokens(tokens),
		})
		ts.maxWords = max(ts.maxWords, len(tokens))
	}
	return ts
}

// Len returns the number of usable terms.
func (ts *TermSet) Len() int { return len(ts.terms) }

// MaxWords returns the word count of the longest term, or 0 for an empty set.
func (ts *TermSet) MaxWords() int { return ts.maxWords }

// Match finds the term in vocabulary most similar to word. It prepares the
// vocabulary on every call; use [Prepare] and [Matcher.MatchPrepared] in loops.
//
// When matched is false, corrected equals word and confidence is 0.
func (m *Matcher) Match(word string, vocabulary []string) (corrected string, confidence float64, matched bool) {
	return m.MatchPrepared(word, Prepare(vocabulary))
}

// MatchPrepared is [Matcher.Match] against a prepared [TermSet]. word may be a
// phrase; it is compared as a whole against every term.
func (m *Matcher) MatchPrepared(word string, ts *TermSet) (corrected string, confidence float64, matched bool) {
	if ts == nil || len(ts.terms) == 0 || strings.TrimSpace(word) == "" {
		return word, 0, false
	}

	lower := strings.ToLower(strings.TrimSpace(word))
	tokens := strings.Fields(lower)
	codes := codesForTokens(tokens)

	var (
		best         *Term
		bestScore    float64
		bestPhonetic bool
	)
	for i := range ts.terms {
		term := &ts.terms[i]
		score := bestJWScore(tokens, term.tokens, lower, term.lower)

		if codesOverlap(codes, term.codes) {
			if score >= m.phoneticThreshold && (!bestPhonetic || score > bestScore) {
				best, bestScore, bestPhonetic = term, score, true
			}
		} else if !bestPhonetic && score >= m.fuzzyThreshold && score > bestScore {
			best, bestScore = term, score
		}
	}

	if best == nil {
		return word, 0, false
	}
	return best.Name, bestScore, true
}

// codesForTokens returns the union of the Double Metaphone codes of tokens.
// Empty codes are skipped.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore returns the highest Jaro-Winkler similarity over the full
// strings, the space-stripped strings, and every token pair.
func bestJWScore(inputTokens, termTokens []string, inputFull, termFull string) float64 {
	score := matchr.JaroWinkler(inputFull, termFull, false)

	if len(inputTokens) > 1 || len(termTokens) > 1 {
		if s := matchr.JaroWinkler(strings.Join(inputTokens, ""), strings.Join(termTokens, ""), false); s > score {
			score = s
		}
	}

	for _, it := range inputTokens {
		for _, tt := range termTokens {
			if s := matchr.JaroWinkler(it, tt, false); s > score {
				score = s
			}
		}
	}
	return score
}
