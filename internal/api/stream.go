package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/MrWong99/earshot/internal/observe"
	"github.com/MrWong99/earshot/internal/transcript"
	"github.com/MrWong99/earshot/pkg/textanalysis"
)

// streamReply answers one final transcript on the stream.
type streamReply struct {
	ID          uuid.UUID                `json:"id"`
	Text        string                   `json:"text"`
	Corrected   string                   `json:"corrected"`
	Confidence  float64                  `json:"confidence"`
	Annotation  *textanalysis.Annotation `json:"annotation"`
	Corrections []transcript.Correction  `json:"corrections"`
}

// handleStream accepts a websocket carrying transcripts from a speech
// recogniser. Interim transcripts are ignored. Each final transcript is
// answered with a [streamReply]; a bad frame is answered with an error object
// and the stream stays open.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(s.cfg.CORSOrigins),
	})
	if err != nil {
		// Accept has already written the response.
		observe.Logger(r.Context()).Warn("stream: websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxBodyBytes)

	ctx := r.Context()
	s.metrics.ActiveStreams.Add(ctx, 1)
	defer s.metrics.ActiveStreams.Add(context.WithoutCancel(ctx), -1)

	log := observe.Logger(ctx)
	log.Info("stream opened")

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				log.Info("stream closed")
			} else {
				log.Warn("stream read failed", "err", err)
			}
			return
		}

		reply, err := s.streamFrame(ctx, typ, data)
		if err != nil {
			var ve *ValidationError
			if !errors.As(err, &ve) {
				if ctx.Err() != nil {
					return
				}
				log.Error("stream analysis failed", "err", err)
				reply = errorBody{Error: "internal server error"}
			} else {
				reply = errorBody{Error: ve.Msg}
			}
		}
		if reply == nil {
			continue
		}

		out, err := json.Marshal(reply)
		if err != nil {
			log.Error("stream encode failed", "err", err)
			return
		}
		if err := conn.Write(ctx, websocket.MessageText, out); err != nil {
			log.Warn("stream write failed", "err", err)
			return
		}
	}
}

// streamFrame handles one client frame. A nil reply means nothing is sent.
func (s *Server) streamFrame(ctx context.Context, typ websocket.MessageType, data []byte) (any, error) {
	if typ != websocket.MessageText {
		return nil, invalid("binary frames are not supported")
	}

	var t transcript.Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, invalid("invalid JSON frame")
	}
	if !t.IsFinal {
		return nil, nil
	}
	if t.Text == "" {
		return nil, errTextRequired
	}

	res, err := s.svc.Analyze(ctx, t)
	if err != nil {
		return nil, err
	}
	return streamReply{
		ID:          res.ID,
		Text:        res.Original,
		Corrected:   res.Text,
		Confidence:  res.Confidence,
		Annotation:  res.Annotation,
		Corrections: res.Corrections,
	}, nil
}

// originPatterns turns CORS origins into websocket host patterns.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" || !strings.Contains(o, "://") {
			patterns = append(patterns, o)
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return patterns
}
