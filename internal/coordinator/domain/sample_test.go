package domain

import (
	"fmt"
	"testing"
	"time"
)

func TestSampleBuffer_FIFOEviction(t *testing.T) {
	buf := NewSampleBuffer(3)

	for i := 0; i < 5; i++ {
		buf.Add(SampleRecord{Path: fmt.Sprintf("/test/a/%d", i)})
	}

	got := buf.Snapshot()
	if len(got) != 3 {
		t.Fatalf("Expected 3 samples, got %d", len(got))
	}
	// Oldest two were evicted
	for i, want := range []string{"/test/a/2", "/test/a/3", "/test/a/4"} {
		if got[i].Path != want {
			t.Errorf("Slot %d: expected %s, got %s", i, want, got[i].Path)
		}
	}
}

func TestSampleBuffer_NeverExceedsCapacity(t *testing.T) {
	buf := NewSampleBuffer(8)

	for i := 0; i < 100; i++ {
		buf.Add(SampleRecord{Path: fmt.Sprintf("/test/a/%d", i)})
		if buf.Len() > 8 {
			t.Fatalf("Buffer grew to %d past capacity 8", buf.Len())
		}
	}
	if buf.Len() != 8 {
		t.Errorf("Expected full buffer of 8, got %d", buf.Len())
	}
	if buf.Capacity() != 8 {
		t.Errorf("Expected capacity 8, got %d", buf.Capacity())
	}
}

func TestSampleBuffer_SnapshotIsCopy(t *testing.T) {
	buf := NewSampleBuffer(4)
	buf.Add(SampleRecord{Path: "/test/a/1"})

	snap := buf.Snapshot()
	snap[0].Path = "/mutated"

	if got := buf.Snapshot()[0].Path; got != "/test/a/1" {
		t.Errorf("Snapshot mutation leaked into buffer: %s", got)
	}
}

func TestNewRecord(t *testing.T) {
	now := time.Now()
	r1, err := NewRecord(now)
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	r2, err := NewRecord(now)
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}

	if r1.Msg == "" || r1.Msg == r2.Msg {
		t.Errorf("Record markers must be unique, got %q and %q", r1.Msg, r2.Msg)
	}
	if r1.Ts != now.UnixMilli() {
		t.Errorf("Expected ts %d, got %d", now.UnixMilli(), r1.Ts)
	}
}
