package service

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anthanhphan/go-replica-coordinator/internal/coordinator/domain"
	storeport "github.com/anthanhphan/go-replica-coordinator/internal/store/port"
	"github.com/anthanhphan/gosdk/logger"
)

const (
	DefaultSampleInterval = 5 * time.Second
	DefaultSampleJitter   = 1.0
	DefaultDriftLogSize   = 32
)

type samplerStats struct {
	checks      atomic.Uint64
	driftEvents atomic.Uint64
}

// sampler re-reads retained samples from the local store and reports any
// divergence from the value written. It never repairs anything: drift is
// evidence for an operator, not a trigger for corrective writes.
type sampler struct {
	store    PrimaryStore
	samples  *domain.SampleBuffer
	interval time.Duration
	jitter   float64

	stats samplerStats

	driftMu   sync.Mutex
	driftLog  []domain.DriftEvent
	driftSize int
}

func newSampler(store PrimaryStore, samples *domain.SampleBuffer, interval time.Duration, jitter float64, driftLogSize int) *sampler {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	if jitter < 0 {
		jitter = DefaultSampleJitter
	}
	if driftLogSize <= 0 {
		driftLogSize = DefaultDriftLogSize
	}
	return &sampler{
		store:     store,
		samples:   samples,
		interval:  interval,
		jitter:    jitter,
		driftLog:  make([]domain.DriftEvent, 0, driftLogSize),
		driftSize: driftLogSize,
	}
}

// nextDelay is jittered independently of the populator so the two loops
// drift apart instead of always sampling right after a write burst.
func (s *sampler) nextDelay() time.Duration {
	return time.Duration(float64(s.interval) * (1 + rand.Float64()*s.jitter))
}

// run executes verification passes until ctx is cancelled.
func (s *sampler) run(ctx context.Context) {
	timer := time.NewTimer(s.nextDelay())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.verifyAll(ctx)
			timer.Reset(s.nextDelay())
		}
	}
}

// verifyAll checks every retained sample once. The snapshot is taken up
// front so eviction during the pass cannot skip or repeat entries.
func (s *sampler) verifyAll(ctx context.Context) {
	for _, sample := range s.samples.Snapshot() {
		if ctx.Err() != nil {
			return
		}
		s.verify(ctx, sample)
	}
}

// verify re-reads one sample. A missing record, an unparseable payload and
// a payload that no longer matches are all drift; a store error is not, it
// just means this sample could not be checked this pass.
func (s *sampler) verify(ctx context.Context, sample domain.SampleRecord) {
	s.stats.checks.Add(1)

	observed, err := s.store.Read(ctx, sample.Path)
	if errors.Is(err, storeport.ErrPathNotFound) {
		s.recordDrift(sample, domain.DriftReasonMissing, "")
		return
	}
	if err != nil {
		logger.Warnw("Sample re-read failed", "path", sample.Path, "error", err)
		return
	}

	var record domain.Record
	if err := json.Unmarshal(observed, &record); err != nil {
		s.recordDrift(sample, domain.DriftReasonMalformed, string(observed))
		return
	}
	if record != sample.Expected {
		s.recordDrift(sample, domain.DriftReasonMismatch, string(observed))
	}
}

func (s *sampler) recordDrift(sample domain.SampleRecord, reason, observed string) {
	expected, err := json.Marshal(sample.Expected)
	if err != nil {
		logger.Errorw("Encode expected payload failed", "path", sample.Path, "error", err)
		return
	}
	event, err := domain.NewDriftEvent(sample.Path, reason, string(expected), observed, time.Now())
	if err != nil {
		logger.Errorw("Create drift event failed", "path", sample.Path, "error", err)
		return
	}

	s.stats.driftEvents.Add(1)
	s.appendDrift(event)
	logger.Warnw("Consistency drift detected",
		"id", event.ID,
		"path", event.Path,
		"reason", event.Reason,
		"expected", event.Expected,
		"observed", event.Observed)
}

// appendDrift keeps the most recent events, oldest evicted first.
func (s *sampler) appendDrift(event domain.DriftEvent) {
	s.driftMu.Lock()
	defer s.driftMu.Unlock()

	if len(s.driftLog) == s.driftSize {
		copy(s.driftLog, s.driftLog[1:])
		s.driftLog[len(s.driftLog)-1] = event
		return
	}
	s.driftLog = append(s.driftLog, event)
}

// recentDrift returns a copy of the retained events, oldest first.
func (s *sampler) recentDrift() []domain.DriftEvent {
	s.driftMu.Lock()
	defer s.driftMu.Unlock()

	out := make([]domain.DriftEvent, len(s.driftLog))
	copy(out, s.driftLog)
	return out
}

func (s *sampler) statsSnapshot() domain.SamplerStats {
	return domain.SamplerStats{
		Checks:      s.stats.checks.Load(),
		DriftEvents: s.stats.driftEvents.Load(),
	}
}
