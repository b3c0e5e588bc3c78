// Package badgerdb implements the record repository on top of Badger v3.
package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthanhphan/go-replica-coordinator/internal/store/port"
	"github.com/anthanhphan/gosdk/logger"
	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// DefaultGCInterval is how often the value log garbage collector runs.
	DefaultGCInterval = 10 * time.Minute
	// DefaultGCThreshold is the discard ratio passed to Badger's value log GC.
	DefaultGCThreshold = 0.5
)

// Config holds the engine settings for a node's local record store.
type Config struct {
	Dir         string
	SyncWrites  bool
	GCInterval  time.Duration
	GCThreshold float64
}

// Store implements port.Repository using Badger v3.
type Store struct {
	db  *badger.DB
	cfg Config

	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsOps          *prometheus.CounterVec

	stopCh chan struct{}
	doneCh chan struct{}
}

var _ port.Repository = (*Store)(nil)

// New opens the record store and starts the value log GC loop.
func New(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("badgerdb: dir is required")
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = DefaultGCInterval
	}
	if cfg.GCThreshold <= 0 {
		cfg.GCThreshold = DefaultGCThreshold
	}

	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = &badgerLogger{}
	opts.SyncWrites = cfg.SyncWrites

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerdb: open db: %w", err)
	}

	s := &Store{
		db:     db,
		cfg:    cfg,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go s.gcLoop()

	logger.Infow("Record store opened", "dir", cfg.Dir, "sync_writes", cfg.SyncWrites)
	return s, nil
}

// Write upserts the value stored at path.
func (s *Store) Write(ctx context.Context, path string, value []byte) error {
	s.countOp("write")
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(path), value)
	})
}

// Read returns the value stored at path.
func (s *Store) Read(ctx context.Context, path string) ([]byte, error) {
	s.countOp("read")

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(path))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return port.ErrPathNotFound
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Count returns the number of keys starting with prefix. Iteration is
// key-only, values are never touched.
func (s *Store) Count(ctx context.Context, prefix string) (int64, error) {
	s.countOp("count")

	var count int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Close stops the GC loop and closes the database.
func (s *Store) Close() error {
	close(s.stopCh)
	<-s.doneCh

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("badgerdb: close db: %w", err)
	}
	logger.Info("Record store closed")
	return nil
}

// RegisterMetrics registers engine metrics with the given registry and
// starts the background updater. Returns the store for chaining.
func (s *Store) RegisterMetrics(registry *prometheus.Registry) *Store {
	s.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "replicad",
		Subsystem: "store",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	})
	s.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "replicad",
		Subsystem: "store",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	})
	s.metricsOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "replicad",
		Subsystem: "store",
		Name:      "ops_total",
		Help:      "Record store operations by type",
	}, []string{"op"})

	registry.MustRegister(s.metricsLSMSize, s.metricsValueLogSize, s.metricsOps)

	go s.metricsUpdateLoop()
	return s
}

func (s *Store) countOp(op string) {
	if s.metricsOps != nil {
		s.metricsOps.WithLabelValues(op).Inc()
	}
}

func (s *Store) metricsUpdateLoop() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lsm, vlog := s.db.Size()
			s.metricsLSMSize.Set(float64(lsm))
			s.metricsValueLogSize.Set(float64(vlog))
		case <-s.stopCh:
			return
		}
	}
}

// gcLoop periodically reclaims space from the value log.
func (s *Store) gcLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runGC()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Store) runGC() {
	for {
		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if err == nil {
			continue
		}
		if !errors.Is(err, badger.ErrNoRewrite) {
			logger.Warnw("Value log GC failed", "error", err)
		}
		return
	}
}

// badgerLogger routes Badger's internal logging into the structured logger.
type badgerLogger struct{}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	logger.Errorw(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	logger.Warnw(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	logger.Debugw(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	logger.Debugw(fmt.Sprintf(format, args...))
}
