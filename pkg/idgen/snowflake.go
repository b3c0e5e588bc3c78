package idgen

import (
	"errors"
	"sync"
)

// ID layout, most significant bit first:
//
//	1 bit   sign, always zero
//	41 bits milliseconds since Epoch
//	10 bits node ID, up to 1024 nodes
//	12 bits per-millisecond sequence, 4096 IDs per node per millisecond
const (
	nodeBits     = 10
	sequenceBits = 12

	maxNodeID   = -1 ^ (-1 << nodeBits)
	maxSequence = -1 ^ (-1 << sequenceBits)

	nodeShift      = sequenceBits
	timestampShift = sequenceBits + nodeBits

	// Epoch is 2025-01-01 00:00:00 UTC. Timestamps are stored relative
	// to it, which keeps the 41-bit field good for about 69 years.
	Epoch = 1735689600000
)

var (
	ErrNodeIDTooLarge = errors.New("node ID too large")
	ErrClockMovedBack = errors.New("clock moved backwards")
)

// Snowflake generates unique 64-bit IDs. Each node in the fleet runs its
// own generator seeded with a distinct node ID, so generated path segments
// never collide across peers.
type Snowflake struct {
	mu       sync.Mutex
	clock    Clock
	nodeID   int64
	lastTime int64
	sequence int64
}

// New creates a generator for the given node. A nil clock falls back to
// the system clock.
func New(nodeID int64, clock Clock) (*Snowflake, error) {
	if nodeID < 0 || nodeID > int64(maxNodeID) {
		return nil, ErrNodeIDTooLarge
	}
	if clock == nil {
		clock = SystemClock{}
	}

	return &Snowflake{
		clock:    clock,
		nodeID:   nodeID,
		lastTime: -1,
	}, nil
}

// Next returns the next ID. IDs from a single generator are strictly
// increasing.
func (s *Snowflake) Next() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if now < s.lastTime {
		return 0, ErrClockMovedBack
	}

	if now == s.lastTime {
		s.sequence = (s.sequence + 1) & int64(maxSequence)
		if s.sequence == 0 {
			now = s.waitNextMilli(now)
		}
	} else {
		s.sequence = 0
	}
	s.lastTime = now

	id := (now-Epoch)<<timestampShift | s.nodeID<<nodeShift | s.sequence
	return id, nil
}

// waitNextMilli spins until the clock passes lastTime. Only reached when
// a node exhausts the whole sequence space inside one millisecond.
func (s *Snowflake) waitNextMilli(now int64) int64 {
	for now <= s.lastTime {
		now = s.clock.Now()
	}
	return now
}
