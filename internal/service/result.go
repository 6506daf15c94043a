package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/earshot/internal/transcript"
	"github.com/MrWong99/earshot/pkg/textanalysis"
)

// Result is one analyzed transcript. It is what the stream endpoint answers
// with and what gets published to the event bus.
type Result struct {
	ID uuid.UUID `json:"id"`

	// Text is the transcript after vocabulary correction. Annotation was
	// computed from it.
	Text string `json:"text"`

	// Original is the transcript as received.
	Original string `json:"original"`

	// Corrections lists the substitutions that turned Original into Text.
	// Never nil.
	Corrections []transcript.Correction `json:"corrections"`

	// Confidence is the recogniser's confidence for the transcript.
	Confidence float64 `json:"confidence"`

	CreatedAt  time.Time                `json:"createdAt"`
	Annotation *textanalysis.Annotation `json:"annotation"`
}
