package domain

import (
	"sync"
)

// DefaultSampleCapacity is the default size of the retained sample buffer.
const DefaultSampleCapacity = 64

// SampleRecord pins a generated path to the payload that was written there.
type SampleRecord struct {
	Path     string
	Expected Record
}

// SampleBuffer is a fixed-capacity FIFO of retained samples. Once full,
// adding a sample evicts the oldest one; the buffer never grows past its
// capacity.
type SampleBuffer struct {
	mu       sync.Mutex
	capacity int
	records  []SampleRecord
}

// NewSampleBuffer creates a buffer with the given capacity.
func NewSampleBuffer(capacity int) *SampleBuffer {
	if capacity <= 0 {
		capacity = DefaultSampleCapacity
	}
	return &SampleBuffer{
		capacity: capacity,
		records:  make([]SampleRecord, 0, capacity),
	}
}

// Add appends a sample, evicting the oldest when the buffer is full.
func (b *SampleBuffer) Add(sample SampleRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.records) == b.capacity {
		copy(b.records, b.records[1:])
		b.records[len(b.records)-1] = sample
		return
	}
	b.records = append(b.records, sample)
}

// Snapshot returns a copy of the retained samples, oldest first.
func (b *SampleBuffer) Snapshot() []SampleRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]SampleRecord, len(b.records))
	copy(out, b.records)
	return out
}

// Len returns the number of retained samples.
func (b *SampleBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// Capacity returns the fixed capacity.
func (b *SampleBuffer) Capacity() int {
	return b.capacity
}
