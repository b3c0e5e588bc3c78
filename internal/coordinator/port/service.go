package port

import (
	"context"

	"github.com/anthanhphan/go-replica-coordinator/internal/coordinator/domain"
)

// CoordinatorService drives replica membership and the background write and
// verification loops.
type CoordinatorService interface {
	// Start launches the reconciler, populator and sampler workers under
	// the given context.
	Start(ctx context.Context)

	// Stop drains the async write pool and waits for the workers to exit.
	// Call it after cancelling the context passed to Start.
	Stop()

	// ReplicaFor resolves the owner of key and returns a live session to
	// it, connecting on demand. Returns ErrNoReplica when nobody can
	// serve the key.
	ReplicaFor(ctx context.Context, key string) (PeerConn, error)

	// Owner reports the ring owner of key without side effects.
	Owner(key string) (string, bool)

	// Status snapshots cluster state for the admin surface.
	Status(ctx context.Context) domain.ClusterStatus

	// RecentDrift lists recent drift events, oldest first.
	RecentDrift() []domain.DriftEvent
}
