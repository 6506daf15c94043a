// Package textanalysis annotates a finalized transcript with lightweight,
// lexicon-driven language analysis: sentiment, named entities, keywords,
// emotions, simple statistics, language, and whether it is a question.
//
// The analysis is a fixed pipeline over one string:
//
//  1. Tokenisation: Unicode word segmentation of the text, lower-cased, plus
//     a sentence split on '.', '!' and '?'.
//  2. Sentiment: a negation-aware score over Snowball stems, averaged with a
//     score over two small fixed polarity lists.
//  3. Entities: four regular-expression scans (people, places,
//     organisations, dates) over the original-case text.
//  4. Keywords, emotions, language and question detection over the tokens.
//
// Nothing here is a trained model; the heuristics are deliberately coarse.
//
// An [Analyzer] is immutable after [New] and safe for concurrent use. Every
// call is independent and deterministic for a given lexicon.
package textanalysis

import (
	"context"
	"fmt"
)

// Analyzer annotates text using compiled, read-only word tables.
type Analyzer struct {
	t *tables
}

// New validates lex and compiles it into an [Analyzer]. Validation failures
// wrap [ErrMissingResource].
func New(lex *Lexicon) (*Analyzer, error) {
	if err := lex.Validate(); err != nil {
		return nil, fmt.Errorf("textanalysis: invalid lexicon: %w", err)
	}
	return &Analyzer{t: compile(lex)}, nil
}

// NewDefault returns an [Analyzer] built from the embedded lexicon.
func NewDefault() (*Analyzer, error) {
	lex, err := DefaultLexicon()
	if err != nil {
		return nil, err
	}
	return New(lex)
}

// Analyze annotates text. Empty or whitespace-only text is valid input and
// yields an annotation with zero counts, empty lists and language "en".
//
// The only error besides ctx cancellation is an [*AnalysisError] for an
// analyzer that was not built by [New].
func (a *Analyzer) Analyze(ctx context.Context, text string) (*Annotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a == nil || a.t == nil {
		return nil, &AnalysisError{Op: "analyze", Err: fmt.Errorf("analyzer has no word tables: %w", ErrMissingResource)}
	}

	tokens := Tokenize(text)
	if len(tokens) == 0 {
		ann := emptyAnnotation()
		ann.Statistics = statistics(0, len(Sentences(text)))
		ann.IsQuestion = a.t.isQuestion(text, tokens)
		return ann, nil
	}

	t := a.t
	return &Annotation{
		Sentiment:  t.sentiment(tokens),
		Entities:   extractEntities(text),
		Keywords:   t.keywords(tokens),
		Emotions:   t.emotions(tokens),
		Statistics: statistics(len(tokens), len(Sentences(text))),
		IsQuestion: t.isQuestion(text, tokens),
		Language:   t.language(tokens),
	}, nil
}
