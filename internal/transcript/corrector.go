package transcript

import (
	"context"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MrWong99/earshot/internal/transcript/phonetic"
)

const (
	methodPhonetic       = "phonetic"
	defaultMinWordLength = 3
)

// Option configures a [VocabularyCorrector].
type Option func(*VocabularyCorrector)

// WithPhoneticMatcher replaces the default [phonetic.Matcher].
func WithPhoneticMatcher(m PhoneticMatcher) Option {
	return func(c *VocabularyCorrector) {
		c.matcher = m
	}
}

// WithMinWordLength sets the minimum number of letters a span must have
// before it is considered for correction. Short function words ("to", "in")
// sound like the start of far too many names. Default: 3.
func WithMinWordLength(n int) Option {
	return func(c *VocabularyCorrector) {
		c.minLen = n
	}
}

// VocabularyCorrector corrects transcripts against a fixed vocabulary. The
// vocabulary is prepared once in [NewVocabularyCorrector]; build a new
// corrector to change it.
//
// VocabularyCorrector is safe for concurrent use.
type VocabularyCorrector struct {
	matcher    PhoneticMatcher
	vocabulary []string
	terms      *phonetic.TermSet
	minLen     int
}

var _ Corrector = (*VocabularyCorrector)(nil)

// NewVocabularyCorrector returns a corrector for vocabulary. With an empty
// vocabulary every call to Correct returns the text unchanged.
func NewVocabularyCorrector(vocabulary []string, opts ...Option) *VocabularyCorrector {
	c := &VocabularyCorrector{
		matcher:    phonetic.New(),
		vocabulary: slices.Clone(vocabulary),
		minLen:     defaultMinWordLength,
	}
	for _, o := range opts {
		o(c)
	}
	c.terms = phonetic.Prepare(c.vocabulary)
	return c
}

// Vocabulary returns a copy of the configured terms.
func (c *VocabularyCorrector) Vocabulary() []string {
	return slices.Clone(c.vocabulary)
}

// Correct replaces misheard vocabulary terms in t.Text.
//
// The text is split on whitespace. At each word, windows from the longest
// term's word count plus one down to a single word are tried, and the longest
// window that matches wins. The extra word lets a name the recogniser split in
// two ("elder nacks") map onto a one-word term. A window is rejected when
// dropping its first or last word matches at least as well, so neighbouring
// words are not swallowed into a term. Punctuation around a window is kept;
// windows never span punctuation.
func (c *VocabularyCorrector) Correct(ctx context.Context, t Transcript) (*Corrected, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &Corrected{
		Original:    t,
		Text:        t.Text,
		Corrections: []Correction{},
	}
	if c == nil || c.matcher == nil || c.terms.Len() == 0 {
		return out, nil
	}

	if text, corrections := c.apply(t.Text); len(corrections) > 0 {
		out.Text = text
		out.Corrections = corrections
	}
	return out, nil
}

// token is a whitespace-separated field split into its leading punctuation,
// its word core, and its trailing punctuation.
type token struct {
	raw, lead, core, trail string
}

func splitToken(s string) token {
	start := strings.IndexFunc(s, isWordRune)
	if start < 0 {
		return token{raw: s, lead: s}
	}
	end := strings.LastIndexFunc(s, isWordRune)
	_, size := utf8.DecodeRuneInString(s[end:])
	end += size
	return token{raw: s, lead: s[:start], core: s[start:end], trail: s[end:]}
}

func isWordRune(r rune) bool {
	return !unicode.IsPunct(r) && !unicode.IsSymbol(r)
}

func (c *VocabularyCorrector) apply(text string) (string, []Correction) {
	fields := strings.Fields(text)
	toks := make([]token, len(fields))
	for i, f := range fields {
		toks[i] = splitToken(f)
	}

	maxN := c.terms.MaxWords() + 1
	out := make([]string, 0, len(toks))
	var corrections []Correction

	for i := 0; i < len(toks); {
		n, phrase, term, conf := c.longestMatch(toks, i, maxN)
		if n == 0 || phrase == term {
			n = max(n, 1)
			for _, tok := range toks[i : i+n] {
				out = append(out, tok.raw)
			}
			i += n
			continue
		}

		out = append(out, toks[i].lead+term+toks[i+n-1].trail)
		corrections = append(corrections, Correction{
			Original:   phrase,
			Corrected:  term,
			Confidence: conf,
			Method:     methodPhonetic,
		})
		i += n
	}

	return strings.Join(out, " "), corrections
}

// longestMatch returns the number of tokens consumed at toks[i] with the
// matched phrase, term and confidence. n is 0 when no window matches.
func (c *VocabularyCorrector) longestMatch(toks []token, i, maxN int) (int, string, string, float64) {
	for n := min(maxN, len(toks)-i); n >= 1; n-- {
		win := toks[i : i+n]
		phrase, ok := c.phrase(win, c.minLen)
		if !ok {
			continue
		}
		term, conf, matched := c.match(phrase)
		if !matched {
			continue
		}
		if n > 1 && c.trimmedMatchesAsWell(win, conf) {
			continue
		}
		return n, phrase, term, conf
	}
	return 0, "", "", 0
}

// trimmedMatchesAsWell ignores the minimum length: a short word that carries
// the whole match still disqualifies the longer window.
func (c *VocabularyCorrector) trimmedMatchesAsWell(win []token, conf float64) bool {
	for _, sub := range [][]token{win[1:], win[:len(win)-1]} {
		phrase, ok := c.phrase(sub, 1)
		if !ok {
			continue
		}
		if _, subConf, matched := c.match(phrase); matched && subConf >= conf {
			return true
		}
	}
	return false
}

// phrase joins the cores of win. It reports false when the window crosses
// punctuation or has fewer than minLen letters.
func (c *VocabularyCorrector) phrase(win []token, minLen int) (string, bool) {
	cores := make([]string, len(win))
	letters := 0
	for j, tok := range win {
		if tok.core == "" || (j > 0 && tok.lead != "") || (j < len(win)-1 && tok.trail != "") {
			return "", false
		}
		cores[j] = tok.core
		letters += utf8.RuneCountInString(tok.core)
	}
	if letters < minLen {
		return "", false
	}
	return strings.Join(cores, " "), true
}

func (c *VocabularyCorrector) match(phrase string) (string, float64, bool) {
	if pm, ok := c.matcher.(*phonetic.Matcher); ok {
		return pm.MatchPrepared(phrase, c.terms)
	}
	return c.matcher.Match(phrase, c.vocabulary)
}
