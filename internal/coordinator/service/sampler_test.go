package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/anthanhphan/go-replica-coordinator/internal/coordinator/domain"
	"github.com/anthanhphan/go-replica-coordinator/internal/coordinator/service/mocks"
	storeport "github.com/anthanhphan/go-replica-coordinator/internal/store/port"
	"go.uber.org/mock/gomock"
)

func newTestSampler(t *testing.T) (*sampler, *mocks.MockPrimaryStore, *domain.SampleBuffer) {
	t.Helper()
	store := mocks.NewMockPrimaryStore(gomock.NewController(t))
	samples := domain.NewSampleBuffer(8)
	return newSampler(store, samples, time.Hour, 0, 4), store, samples
}

func mustMarshal(t *testing.T, record domain.Record) []byte {
	t.Helper()
	payload, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}
	return payload
}

func TestSampler_Verify(t *testing.T) {
	expected := domain.Record{Msg: "01JA3V7M9RQZT5W8XKYB2C4DEF", Ts: 1756100000000}

	tests := []struct {
		name       string
		observed   []byte
		readErr    error
		wantDrift  bool
		wantReason string
	}{
		{
			name:     "MatchingPayload",
			observed: []byte(`{"msg":"01JA3V7M9RQZT5W8XKYB2C4DEF","ts":1756100000000}`),
		},
		{
			name:       "ChangedPayload",
			observed:   []byte(`{"msg":"someone-else-wrote-this","ts":1756100000000}`),
			wantDrift:  true,
			wantReason: domain.DriftReasonMismatch,
		},
		{
			name:       "ChangedTimestamp",
			observed:   []byte(`{"msg":"01JA3V7M9RQZT5W8XKYB2C4DEF","ts":1}`),
			wantDrift:  true,
			wantReason: domain.DriftReasonMismatch,
		},
		{
			name:       "RecordMissing",
			readErr:    storeport.ErrPathNotFound,
			wantDrift:  true,
			wantReason: domain.DriftReasonMissing,
		},
		{
			name:       "MalformedPayload",
			observed:   []byte("not json at all"),
			wantDrift:  true,
			wantReason: domain.DriftReasonMalformed,
		},
		{
			name:    "StoreErrorIsNotDrift",
			readErr: errors.New("store offline"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			smp, store, samples := newTestSampler(t)
			samples.Add(domain.SampleRecord{Path: "/test/a/1", Expected: expected})
			store.EXPECT().Read(gomock.Any(), "/test/a/1").Return(tt.observed, tt.readErr)

			smp.verifyAll(context.Background())

			stats := smp.statsSnapshot()
			if stats.Checks != 1 {
				t.Errorf("Checks = %d, want 1", stats.Checks)
			}

			events := smp.recentDrift()
			if !tt.wantDrift {
				if stats.DriftEvents != 0 || len(events) != 0 {
					t.Errorf("drift events = %d (%v), want none", stats.DriftEvents, events)
				}
				return
			}
			if stats.DriftEvents != 1 || len(events) != 1 {
				t.Fatalf("drift events = %d (%d logged), want exactly 1", stats.DriftEvents, len(events))
			}
			event := events[0]
			if event.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", event.Reason, tt.wantReason)
			}
			if event.Path != "/test/a/1" {
				t.Errorf("Path = %q, want /test/a/1", event.Path)
			}
			if event.Expected != string(mustMarshal(t, expected)) {
				t.Errorf("Expected = %q, want the retained payload", event.Expected)
			}
			if event.Observed != string(tt.observed) {
				t.Errorf("Observed = %q, want %q", event.Observed, tt.observed)
			}
			if event.ID == "" {
				t.Error("event ID is empty")
			}
		})
	}
}

func TestSampler_ChecksEveryRetainedSample(t *testing.T) {
	smp, store, samples := newTestSampler(t)

	for _, path := range []string{"/test/a/1", "/test/b/2", "/test/c/3"} {
		record := domain.Record{Msg: "m-" + path, Ts: 1}
		samples.Add(domain.SampleRecord{Path: path, Expected: record})
		store.EXPECT().Read(gomock.Any(), path).Return(mustMarshal(t, record), nil)
	}

	smp.verifyAll(context.Background())

	if stats := smp.statsSnapshot(); stats.Checks != 3 || stats.DriftEvents != 0 {
		t.Errorf("stats = %+v, want 3 clean checks", stats)
	}
}

func TestSampler_DriftLogKeepsMostRecent(t *testing.T) {
	smp, store, samples := newTestSampler(t)
	smp.driftSize = 2

	paths := []string{"/test/a/1", "/test/a/2", "/test/a/3"}
	for _, path := range paths {
		samples.Add(domain.SampleRecord{Path: path, Expected: domain.Record{Msg: "m", Ts: 1}})
		store.EXPECT().Read(gomock.Any(), path).Return(nil, storeport.ErrPathNotFound)
	}

	smp.verifyAll(context.Background())

	events := smp.recentDrift()
	if len(events) != 2 {
		t.Fatalf("retained events = %d, want 2", len(events))
	}
	if events[0].Path != "/test/a/2" || events[1].Path != "/test/a/3" {
		t.Errorf("retained paths = [%s, %s], want the two newest", events[0].Path, events[1].Path)
	}
	if stats := smp.statsSnapshot(); stats.DriftEvents != 3 {
		t.Errorf("DriftEvents = %d, want 3", stats.DriftEvents)
	}
}

func TestSampler_RunStopsOnCancel(t *testing.T) {
	store := mocks.NewMockPrimaryStore(gomock.NewController(t))
	smp := newSampler(store, domain.NewSampleBuffer(8), 10*time.Millisecond, 0, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		smp.run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run() did not stop after cancellation")
	}
}
