package textanalysis

import "errors"

// ErrMissingResource is wrapped by every error caused by an absent or empty
// word list. It indicates a configuration problem, not bad input.
var ErrMissingResource = errors.New("missing static resource")

// AnalysisError is returned by [Analyzer.Analyze] when the analyzer cannot
// produce an annotation at all. Input text never causes one; retrying with the
// same analyzer reproduces the same failure.
type AnalysisError struct {
	// Op names the operation that failed.
	Op string

	Err error
}

func (e *AnalysisError) Error() string {
	return "textanalysis: " + e.Op + ": " + e.Err.Error()
}

func (e *AnalysisError) Unwrap() error { return e.Err }
