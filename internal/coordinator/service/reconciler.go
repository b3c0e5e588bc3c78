package service

import (
	"context"
	"errors"
	"time"

	"github.com/anthanhphan/go-replica-coordinator/internal/coordinator/port"
	"github.com/anthanhphan/gosdk/logger"
)

const DefaultReconcileInterval = 5 * time.Second

// reconciler periodically retries every node in the removed working set.
// There is no backoff and no failure budget: a node that flaps rejoins and
// drops out as fast as its connectivity does, and each pass retries the
// whole set again.
type reconciler struct {
	registry *ConnectionRegistry
	interval time.Duration
}

func newReconciler(registry *ConnectionRegistry, interval time.Duration) *reconciler {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	return &reconciler{registry: registry, interval: interval}
}

// run drives reconcile passes until ctx is cancelled. The first pass runs
// immediately so a freshly started node joins its peers without waiting a
// full tick.
func (r *reconciler) run(ctx context.Context) {
	r.reconcile(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// reconcile attempts one connect per removed node. Failures are logged and
// left for the next tick.
func (r *reconciler) reconcile(ctx context.Context) {
	for _, nodeID := range r.registry.Removed() {
		if ctx.Err() != nil {
			return
		}
		_, err := r.registry.Connect(ctx, nodeID)
		switch {
		case err == nil:
			logger.Infow("Node re-admitted to rotation", "node", nodeID)
		case errors.Is(err, port.ErrConnectInFlight):
			// Another caller is already dialing; leave it to them
		case errors.Is(err, port.ErrRegistryClosed):
			return
		default:
			logger.Warnw("Reconnect attempt failed", "node", nodeID, "error", err)
		}
	}
}
