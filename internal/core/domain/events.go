package domain

import (
	"time"

	"github.com/google/uuid"
)

// ToggleEvent records that a user flipped a pipeline's switch. It carries
// the record exactly as last fetched; the dashboard never applies the
// change itself.
type ToggleEvent struct {
	ID          uuid.UUID `json:"id"`
	Pipeline    Pipeline  `json:"pipeline"`
	RequestedAt time.Time `json:"requestedAt"`
}

// NewToggleEvent creates a ToggleEvent for p with a fresh ID.
func NewToggleEvent(p Pipeline) *ToggleEvent {
	return &ToggleEvent{
		ID:          uuid.New(),
		Pipeline:    p,
		RequestedAt: time.Now(),
	}
}
