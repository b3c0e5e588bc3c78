package domain

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Drift reasons attached to events.
const (
	DriftReasonMissing   = "record missing"
	DriftReasonMalformed = "payload malformed"
	DriftReasonMismatch  = "payload mismatch"
)

// DriftEvent captures one observed divergence between a retained sample and
// what came back on re-read. Events are observational; nothing repairs or
// retries them.
type DriftEvent struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Reason     string    `json:"reason"`
	Expected   string    `json:"expected"`
	Observed   string    `json:"observed"`
	DetectedAt time.Time `json:"detected_at"`
}

// NewDriftEvent creates an event with a unique ID.
func NewDriftEvent(path, reason, expected, observed string, now time.Time) (DriftEvent, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return DriftEvent{}, err
	}
	return DriftEvent{
		ID:         id.String(),
		Path:       path,
		Reason:     reason,
		Expected:   expected,
		Observed:   observed,
		DetectedAt: now,
	}, nil
}
