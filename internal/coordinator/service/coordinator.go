package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/anthanhphan/go-replica-coordinator/internal/coordinator/domain"
	"github.com/anthanhphan/go-replica-coordinator/internal/coordinator/port"
	"github.com/anthanhphan/go-replica-coordinator/pkg/resilience"
	"github.com/anthanhphan/gosdk/logger"
)

const (
	DefaultReplicaWorkers = 4
	DefaultReplicaQueue   = 64
)

//go:generate mockgen -destination=mocks/dependencies_mock.go -package=mocks -source=coordinator.go

// PrimaryStore is the slice of the local record store the coordinator
// uses: push-style appends for the write loop, reads for verification,
// counts for the status surface.
type PrimaryStore interface {
	Push(ctx context.Context, parent string, value []byte) (string, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Count(ctx context.Context, path string) (int64, error)
}

// Config carries the coordinator's tunables. Zero values fall back to the
// package defaults.
type Config struct {
	NodeID    string
	Database  string
	Endpoints map[string]domain.Endpoint

	ReconcileInterval time.Duration

	PopulateKeys     []string
	PopulateInterval time.Duration
	PopulateJitter   float64
	SampleRate       float64
	SampleCapacity   int
	WriteTimeout     time.Duration
	ReplicaWorkers   int
	ReplicaQueue     int

	SampleInterval time.Duration
	SampleJitter   float64
	DriftLogSize   int
}

// CoordinatorServiceImpl wires the registry, reconciler, router, populator
// and sampler together and owns their lifecycles.
type CoordinatorServiceImpl struct {
	cfg      Config
	ring     port.HashRing
	registry *ConnectionRegistry
	store    PrimaryStore

	samples    *domain.SampleBuffer
	pool       *resilience.WorkerPool
	router     *replicaRouter
	reconciler *reconciler
	populator  *populator
	sampler    *sampler
	metrics    *coordinatorMetrics

	startTime time.Time
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

var _ port.CoordinatorService = (*CoordinatorServiceImpl)(nil)

func NewCoordinatorService(cfg Config, ring port.HashRing, dialer port.PeerDialer, store PrimaryStore) *CoordinatorServiceImpl {
	workers := cfg.ReplicaWorkers
	if workers <= 0 {
		workers = DefaultReplicaWorkers
	}
	queue := cfg.ReplicaQueue
	if queue <= 0 {
		queue = DefaultReplicaQueue
	}

	registry := NewConnectionRegistry(ring, dialer, cfg.Endpoints)
	samples := domain.NewSampleBuffer(cfg.SampleCapacity)
	pool := resilience.NewWorkerPool(workers, queue)
	router := newReplicaRouter(ring, registry)
	pop := newPopulator(store, router, samples, pool,
		cfg.PopulateKeys, cfg.PopulateInterval, cfg.PopulateJitter, cfg.SampleRate, cfg.WriteTimeout)
	smp := newSampler(store, samples, cfg.SampleInterval, cfg.SampleJitter, cfg.DriftLogSize)

	return &CoordinatorServiceImpl{
		cfg:        cfg,
		ring:       ring,
		registry:   registry,
		store:      store,
		samples:    samples,
		pool:       pool,
		router:     router,
		reconciler: newReconciler(registry, cfg.ReconcileInterval),
		populator:  pop,
		sampler:    smp,
		metrics:    newCoordinatorMetrics(ring, registry, samples, pop, smp),
		startTime:  time.Now(),
	}
}

// RegisterMetrics registers the coordinator's collectors.
func (s *CoordinatorServiceImpl) RegisterMetrics(registry *prometheus.Registry) {
	s.metrics.register(registry)
}

// Start launches the three background loops. The reconciler's first pass
// dials the whole fleet immediately.
func (s *CoordinatorServiceImpl) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.startTime = time.Now()

	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		s.reconciler.run(runCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.populator.run(runCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.sampler.run(runCtx)
	}()

	logger.Infow("Coordinator started",
		"node", s.cfg.NodeID,
		"database", s.cfg.Database,
		"peers", len(s.cfg.Endpoints))
}

// Stop halts the loops, drains the async write pool and closes every peer
// session.
func (s *CoordinatorServiceImpl) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.pool.Close()
	s.pool.Wait()
	s.registry.Close()
	logger.Info("Coordinator stopped")
}

func (s *CoordinatorServiceImpl) ReplicaFor(ctx context.Context, key string) (port.PeerConn, error) {
	return s.router.replicaFor(ctx, key)
}

func (s *CoordinatorServiceImpl) Owner(key string) (string, bool) {
	return s.router.owner(key)
}

func (s *CoordinatorServiceImpl) RecentDrift() []domain.DriftEvent {
	return s.sampler.recentDrift()
}

// Status snapshots the cluster for the admin surface. Local record totals
// cover the populate key namespaces only.
func (s *CoordinatorServiceImpl) Status(ctx context.Context) domain.ClusterStatus {
	states := s.registry.States()
	nodes := make([]domain.NodeStatus, 0, len(s.cfg.Endpoints))
	for id, endpoint := range s.cfg.Endpoints {
		nodes = append(nodes, domain.NodeStatus{
			ID:    id,
			Addr:  endpoint.Addr(),
			State: states[id],
		})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	var localRecords int64
	for _, key := range s.populator.keys {
		count, err := s.store.Count(ctx, key)
		if err != nil {
			logger.Warnw("Count records failed", "key", key, "error", err)
			continue
		}
		localRecords += count
	}

	return domain.ClusterStatus{
		NodeID:         s.cfg.NodeID,
		Database:       s.cfg.Database,
		UptimeSeconds:  int64(time.Since(s.startTime).Seconds()),
		RingMembers:    s.ring.Members(),
		Nodes:          nodes,
		Populator:      s.populator.statsSnapshot(),
		Sampler:        s.sampler.statsSnapshot(),
		SampleCount:    s.samples.Len(),
		SampleCapacity: s.samples.Capacity(),
		LocalRecords:   localRecords,
	}
}
