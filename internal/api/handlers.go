package api

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/earshot/pkg/textanalysis"
)

type analyzeRequest struct {
	Text string `json:"text"`
}

type batchRequest struct {
	Texts []string `json:"texts"`
}

type batchResponse struct {
	Results []*textanalysis.Annotation `json:"results"`
}

type tokenizeResponse struct {
	Tokens []string `json:"tokens"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
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
	w.Header().Set("X-Analysis-ID", res.ID.String())
	writeJSON(w, http.StatusOK, res.Annotation)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.Texts) == 0 {
		writeError(w, r, invalid("texts is required"))
		return
	}
	if limit := s.maxBatch.Load(); int64(len(req.Texts)) > limit {
		writeError(w, r, invalid("batch of %d texts exceeds the limit of %d", len(req.Texts), limit))
		return
	}
	for i, text := range req.Texts {
		if text == "" {
			writeError(w, r, invalid("texts[%d]: text is required", i))
			return
		}
	}

	results := make([]*textanalysis.Annotation, len(req.Texts))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(int(s.concurrency.Load()))
	for i, text := range req.Texts {
		g.Go(func() error {
			res, err := s.svc.AnalyzeText(ctx, text)
			if err != nil {
				return err
			}
			results[i] = res.Annotation
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Results: results})
}

// handleTokenize splits text into word tokens with their original case. An
// absent text yields no tokens.
func (s *Server) handleTokenize(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tokens := textanalysis.Words(req.Text)
	if tokens == nil {
		tokens = []string{}
	}
	writeJSON(w, http.StatusOK, tokenizeResponse{Tokens: tokens})
}
