package textanalysis

import "math"

// labelThreshold is the |score| above which a text is labelled positive or
// negative.
const labelThreshold = 0.1

// sentiment scores lower-cased tokens. The result is the mean of two scores:
//
//   - the stem score: each token is stemmed and looked up in the valence
//     table; a token directly after a negator counts with inverted sign. The
//     sum is divided by the word count and clamped to [-1, 1].
//   - the lexicon score: (positive matches - negative matches) / word count,
//     using the fixed polarity lists.
func (t *tables) sentiment(tokens []string) Sentiment {
	n := len(tokens)
	if n == 0 {
		return Sentiment{Label: LabelNeutral}
	}

	var valence float64
	var pos, neg int
	for i, tok := range tokens {
		if v, ok := t.valence[stem(tok)]; ok {
			if i > 0 && t.negators.has(tokens[i-1]) {
				v = -v
			}
			valence += v
		}
		if t.positive.has(tok) {
			pos++
		}
		if t.negative.has(tok) {
			neg++
		}
	}

	stemScore := clamp(valence/float64(n), -1, 1)
	lexiconScore := float64(pos-neg) / float64(n)
	score := (stemScore + lexiconScore) / 2

	s := Sentiment{
		Score:       score,
		Comparative: score / float64(n),
	}
	switch {
	case score > labelThreshold:
		s.Label = LabelPositive
	case score < -labelThreshold:
		s.Label = LabelNegative
	default:
		s.Label = LabelNeutral
	}
	if s.Label == LabelNeutral {
		s.Confidence = 1 - math.Abs(score)
	} else {
		s.Confidence = math.Min(math.Abs(score)*2, 1)
	}
	return s
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
