package domain

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Record is the payload the populator writes on every cycle. Msg carries a
// unique marker so a replica's copy can be compared against the original.
type Record struct {
	Msg string `json:"msg"`
	Ts  int64  `json:"ts"`
}

// NewRecord creates a record stamped with the given wall clock time.
func NewRecord(now time.Time) (Record, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Msg: id.String(),
		Ts:  now.UnixMilli(),
	}, nil
}
