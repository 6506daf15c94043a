// Package transcript fixes misheard proper nouns in speech-recognition output
// before it is analysed.
//
// Browser speech recognition is good at ordinary words and poor at names:
// people, products, places and team jargon come back as near-homophones
// ("ada love lace", "cooper netties"). A [Corrector] replaces such spans with
// the closest term from a configured vocabulary, using the pronunciation
// matcher in package phonetic.
//
// Each [Correction] records what was replaced, with what, how confident the
// matcher was, and which method produced it, so callers can display or
// audit the change.
package transcript

import "context"

// Transcript is one recognition result from the speech-capture client.
type Transcript struct {
	Text string `json:"text"`

	// IsFinal is false for interim results, which may still change.
	IsFinal bool `json:"final"`

	// Confidence is the recogniser's own confidence in [0, 1]; 0 when the
	// client did not report one.
	Confidence float64 `json:"confidence"`
}

// Correction is a single substitution applied to a transcript.
type Correction struct {
	Original   string  `json:"original"`
	Corrected  string  `json:"corrected"`
	Confidence float64 `json:"confidence"`

	// Method names the stage that produced the substitution. The only stage
	// today is "phonetic".
	Method string `json:"method"`
}

// Corrected pairs a transcript with its corrected text.
type Corrected struct {
	Original Transcript

	// Text has every substitution applied. It equals Original.Text when
	// nothing was corrected.
	Text string

	// Corrections is in text order and never nil.
	Corrections []Correction
}

// Corrector rewrites misheard vocabulary terms in a transcript.
//
// Implementations must be safe for concurrent use.
type Corrector interface {
	Correct(ctx context.Context, t Transcript) (*Corrected, error)
}

// PhoneticMatcher resolves a word or phrase to the most similar vocabulary
// term. When matched is false, corrected must equal word and confidence must
// be 0.
//
// Implementations must be safe for concurrent use.
type PhoneticMatcher interface {
	Match(word string, vocabulary []string) (corrected string, confidence float64, matched bool)
}
