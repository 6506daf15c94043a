package api

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/MrWong99/earshot/pkg/textanalysis"
)

// legacyTopics is how many keywords the legacy shape reports as topics.
const legacyTopics = 3

// legacyNLP is the response shape the first version of the transcript UI
// consumes. It only exists at this boundary.
type legacyNLP struct {
	Sentiment     []float64 `json:"sentiment"`
	Nouns         []string  `json:"nouns"`
	People        []string  `json:"people"`
	Places        []string  `json:"places"`
	Organizations []string  `json:"organizations"`
	Dates         []string  `json:"dates"`
	Questions     bool      `json:"questions"`
	Topics        []string  `json:"topics"`
}

func (s *Server) handleLegacyNLP(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Text == "" {
		writeError(w, r, errTextRequired)
		return
	}

	res, err := s.svc.AnalyzeText(r.Context(), req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sentiment, err := s.sentenceScores(r, res.Text, res.Annotation)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ann := res.Annotation
	w.Header().Set("X-Analysis-ID", res.ID.String())
	writeJSON(w, http.StatusOK, legacyNLP{
		Sentiment:     sentiment,
		Nouns:         legacyNouns(res.Text, ann.Entities),
		People:        ann.Entities.People,
		Places:        ann.Entities.Places,
		Organizations: ann.Entities.Organizations,
		Dates:         ann.Entities.Dates,
		Questions:     ann.IsQuestion,
		Topics:        ann.Keywords[:min(len(ann.Keywords), legacyTopics)],
	})
}

// sentenceScores scores every sentence of text on its own. Text without a
// sentence gets the overall score as its only entry.
func (s *Server) sentenceScores(r *http.Request, text string, whole *textanalysis.Annotation) ([]float64, error) {
	sentences := textanalysis.Sentences(text)
	if len(sentences) == 0 {
		return []float64{whole.Sentiment.Score}, nil
	}

	a := s.svc.Analyzer()
	scores := make([]float64, 0, len(sentences))
	for _, sentence := range sentences {
		ann, err := a.Analyze(r.Context(), sentence)
		if err != nil {
			return nil, err
		}
		scores = append(scores, ann.Sentiment.Score)
	}
	return scores, nil
}

// legacyNouns approximates nouns as the words longer than three runes that
// are not part of a recognised entity. Duplicates are kept.
func legacyNouns(text string, ents textanalysis.Entities) []string {
	inEntity := make(map[string]struct{})
	for _, list := range [][]string{ents.People, ents.Places, ents.Organizations, ents.Dates} {
		for _, e := range list {
			for _, w := range textanalysis.Tokenize(e) {
				inEntity[w] = struct{}{}
			}
		}
	}

	nouns := []string{}
	for _, w := range textanalysis.Words(text) {
		if utf8.RuneCountInString(w) <= 3 {
			continue
		}
		if _, ok := inEntity[strings.ToLower(w)]; ok {
			continue
		}
		nouns = append(nouns, w)
	}
	return nouns
}
