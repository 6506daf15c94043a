package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/MrWong99/earshot/internal/observe"
)

// ValidationError is a caller mistake. It is answered with 400 and its
// message; the analyzer is never invoked.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// errTextRequired is returned for a missing or empty text field.
var errTextRequired = &ValidationError{Msg: "text is required"}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps err to a response. Deadline and cancellation errors write
// nothing: the timeout middleware answers for the former and the client is
// gone for the latter.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: ve.Msg})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		observe.Logger(r.Context()).Debug("request abandoned", "path", r.URL.Path, "err", err)
	default:
		observe.Logger(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads exactly one JSON value from the request body into v.
// Anything but whitespace after it is rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(v)
	if err == nil {
		if err = dec.Decode(&json.RawMessage{}); errors.Is(err, io.EOF) {
			return nil
		}
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return invalid("request body exceeds %d bytes", tooLarge.Limit)
	}
	return invalid("invalid JSON body")
}
