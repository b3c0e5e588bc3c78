package service

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/anthanhphan/go-replica-coordinator/internal/coordinator/domain"
	"github.com/anthanhphan/go-replica-coordinator/pkg/resilience"
	"github.com/anthanhphan/gosdk/logger"
)

const (
	DefaultPopulateInterval = 5 * time.Second
	DefaultPopulateJitter   = 1.0
	DefaultSampleRate       = 0.2
	DefaultWriteTimeout     = 3 * time.Second
)

// DefaultPopulateKeys is the fixed key set the write loop cycles through.
func DefaultPopulateKeys() []string {
	return []string{"/test/a", "/test/b", "/test/c", "/test/d", "/test/e", "/test/f", "/test/g"}
}

// populatorStats are updated from the loop goroutine and the worker pool,
// and read by the status endpoint.
type populatorStats struct {
	primaryWrites      atomic.Uint64
	primaryFailures    atomic.Uint64
	replicaWrites      atomic.Uint64
	replicaFailures    atomic.Uint64
	replicaUnavailable atomic.Uint64
	samplesRetained    atomic.Uint64
}

// populator drives the synthetic write load. Each pass it appends a fresh
// record under every key in its set: once to the local store, once to the
// replica that owns the key. A slice of writes is retained in the sample
// buffer so the sampler can verify them later.
type populator struct {
	store   PrimaryStore
	router  *replicaRouter
	samples *domain.SampleBuffer
	pool    *resilience.WorkerPool

	keys         []string
	interval     time.Duration
	jitter       float64
	sampleRate   float64
	writeTimeout time.Duration

	stats       populatorStats
	keyFailures map[string]*atomic.Uint64
}

func newPopulator(store PrimaryStore, router *replicaRouter, samples *domain.SampleBuffer, pool *resilience.WorkerPool, keys []string, interval time.Duration, jitter, sampleRate float64, writeTimeout time.Duration) *populator {
	if len(keys) == 0 {
		keys = DefaultPopulateKeys()
	}
	if interval <= 0 {
		interval = DefaultPopulateInterval
	}
	if jitter < 0 {
		jitter = DefaultPopulateJitter
	}
	if sampleRate < 0 || sampleRate > 1 {
		sampleRate = DefaultSampleRate
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}

	keyFailures := make(map[string]*atomic.Uint64, len(keys))
	for _, key := range keys {
		keyFailures[key] = &atomic.Uint64{}
	}
	return &populator{
		store:        store,
		router:       router,
		samples:      samples,
		pool:         pool,
		keys:         keys,
		interval:     interval,
		jitter:       jitter,
		sampleRate:   sampleRate,
		writeTimeout: writeTimeout,
		keyFailures:  keyFailures,
	}
}

// nextDelay spreads passes across the fleet so peers do not write in
// lockstep.
func (p *populator) nextDelay() time.Duration {
	return time.Duration(float64(p.interval) * (1 + rand.Float64()*p.jitter))
}

// run executes write passes until ctx is cancelled.
func (p *populator) run(ctx context.Context) {
	timer := time.NewTimer(p.nextDelay())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			p.populateAll(ctx)
			timer.Reset(p.nextDelay())
		}
	}
}

// populateAll runs one pass over the whole key set. A failure on one key
// never blocks the rest of the pass.
func (p *populator) populateAll(ctx context.Context) {
	for _, key := range p.keys {
		if ctx.Err() != nil {
			return
		}
		p.populateKey(ctx, key)
	}
}

// populateKey appends one record under key locally, maybe retains it for
// verification, and hands a copy to the key's replica.
func (p *populator) populateKey(ctx context.Context, key string) {
	record, err := domain.NewRecord(time.Now())
	if err != nil {
		logger.Errorw("Generate record failed", "key", key, "error", err)
		return
	}
	payload, err := json.Marshal(record)
	if err != nil {
		logger.Errorw("Encode record failed", "key", key, "error", err)
		return
	}

	path, err := p.store.Push(ctx, key, payload)
	if err != nil {
		p.stats.primaryFailures.Add(1)
		p.countKeyFailure(key)
		logger.Warnw("Primary write failed", "key", key, "error", err)
		return
	}
	p.stats.primaryWrites.Add(1)
	logger.Debugw("Record written", "path", path)

	if p.sampleRate > 0 && rand.Float64() < p.sampleRate {
		p.samples.Add(domain.SampleRecord{Path: path, Expected: record})
		p.stats.samplesRetained.Add(1)
	}

	p.replicate(ctx, key, path, payload)
}

// replicate sends the record to the replica owning key, asynchronously via
// the worker pool. The pool caps how many replica writes can be in flight
// or queued at once; when it is saturated this blocks until a slot opens,
// throttling the write loop instead of piling up goroutines.
func (p *populator) replicate(ctx context.Context, key, path string, payload []byte) {
	conn, err := p.router.replicaFor(ctx, key)
	if err != nil {
		p.stats.replicaUnavailable.Add(1)
		p.countKeyFailure(key)
		return
	}

	err = p.pool.Submit(ctx, func() {
		writeCtx, cancel := context.WithTimeout(ctx, p.writeTimeout)
		defer cancel()

		if err := conn.Write(writeCtx, path, payload); err != nil {
			p.stats.replicaFailures.Add(1)
			p.countKeyFailure(key)
			logger.Warnw("Replica write failed", "key", key, "path", path, "error", err)
			return
		}
		p.stats.replicaWrites.Add(1)
	})
	if err != nil {
		p.stats.replicaFailures.Add(1)
		p.countKeyFailure(key)
		logger.Warnw("Replica write not submitted", "key", key, "error", err)
	}
}

func (p *populator) countKeyFailure(key string) {
	if counter, ok := p.keyFailures[key]; ok {
		counter.Add(1)
	}
}

// statsSnapshot materializes the counters for the status endpoint.
func (p *populator) statsSnapshot() domain.PopulatorStats {
	byKey := make(map[string]uint64, len(p.keyFailures))
	for key, counter := range p.keyFailures {
		byKey[key] = counter.Load()
	}
	return domain.PopulatorStats{
		PrimaryWrites:      p.stats.primaryWrites.Load(),
		PrimaryFailures:    p.stats.primaryFailures.Load(),
		ReplicaWrites:      p.stats.replicaWrites.Load(),
		ReplicaFailures:    p.stats.replicaFailures.Load(),
		ReplicaUnavailable: p.stats.replicaUnavailable.Load(),
		SamplesRetained:    p.stats.samplesRetained.Load(),
		QueueDepth:         p.pool.QueueDepth(),
		FailuresByKey:      byKey,
	}
}
