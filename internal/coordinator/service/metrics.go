package service

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/anthanhphan/go-replica-coordinator/internal/coordinator/domain"
	"github.com/anthanhphan/go-replica-coordinator/internal/coordinator/port"
)

const (
	metricsNamespace = "replicad"
	metricsSubsystem = "coordinator"
)

// coordinatorMetrics exposes the coordinator's counters to Prometheus. All
// collectors read the live structures on scrape, so the loops themselves
// carry no metrics plumbing.
type coordinatorMetrics struct {
	collectors []prometheus.Collector
}

func newCoordinatorMetrics(ring port.HashRing, registry *ConnectionRegistry, samples *domain.SampleBuffer, pop *populator, smp *sampler) *coordinatorMetrics {
	gauge := func(name, help string, fn func() float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      name,
			Help:      help,
		}, fn)
	}
	counter := func(name, help string, fn func() float64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      name,
			Help:      help,
		}, fn)
	}

	return &coordinatorMetrics{collectors: []prometheus.Collector{
		gauge("ring_members", "Number of nodes currently on the hash ring.", func() float64 {
			return float64(len(ring.Members()))
		}),
		counter("peer_connects_total", "Successful peer connection attempts.", func() float64 {
			connects, _, _ := registry.Stats()
			return float64(connects)
		}),
		counter("peer_dial_failures_total", "Failed peer connection attempts.", func() float64 {
			_, failures, _ := registry.Stats()
			return float64(failures)
		}),
		counter("peer_disconnects_total", "Peer sessions lost after going live.", func() float64 {
			_, _, disconnects := registry.Stats()
			return float64(disconnects)
		}),
		counter("primary_writes_total", "Records written to the local store.", func() float64 {
			return float64(pop.stats.primaryWrites.Load())
		}),
		counter("primary_write_failures_total", "Local store writes that failed.", func() float64 {
			return float64(pop.stats.primaryFailures.Load())
		}),
		counter("replica_writes_total", "Records written to a replica.", func() float64 {
			return float64(pop.stats.replicaWrites.Load())
		}),
		counter("replica_write_failures_total", "Replica writes that failed.", func() float64 {
			return float64(pop.stats.replicaFailures.Load())
		}),
		counter("replica_unavailable_total", "Writes skipped because no replica was reachable.", func() float64 {
			return float64(pop.stats.replicaUnavailable.Load())
		}),
		gauge("replica_queue_depth", "Replica writes waiting for a worker.", func() float64 {
			return float64(pop.pool.QueueDepth())
		}),
		gauge("samples_retained", "Samples currently held for verification.", func() float64 {
			return float64(samples.Len())
		}),
		counter("sampler_checks_total", "Sample verifications performed.", func() float64 {
			return float64(smp.stats.checks.Load())
		}),
		counter("drift_events_total", "Divergences observed between written and re-read records.", func() float64 {
			return float64(smp.stats.driftEvents.Load())
		}),
	}}
}

func (m *coordinatorMetrics) register(registry *prometheus.Registry) {
	for _, collector := range m.collectors {
		registry.MustRegister(collector)
	}
}
