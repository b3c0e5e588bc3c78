package service

import (
	"context"
	"fmt"

	"github.com/anthanhphan/go-replica-coordinator/internal/coordinator/port"
	"github.com/anthanhphan/gosdk/logger"
)

// replicaRouter resolves keys to live peer sessions. It owns no state of
// its own: the ring decides ownership and the registry supplies handles.
type replicaRouter struct {
	ring     port.HashRing
	registry *ConnectionRegistry
}

func newReplicaRouter(ring port.HashRing, registry *ConnectionRegistry) *replicaRouter {
	return &replicaRouter{ring: ring, registry: registry}
}

// replicaFor returns a usable session to the replica that owns key.
//
// Ownership is a point-in-time read of the ring; only currently-live nodes
// are candidates, so a key always routes somewhere as long as any peer is
// up. With the ring empty there is nowhere to send the write and the caller
// gets ErrNoReplica.
func (r *replicaRouter) replicaFor(ctx context.Context, key string) (port.PeerConn, error) {
	nodeID, ok := r.ring.GetNode(key)
	if !ok {
		logger.Warnw("All peers down, no replica available", "key", key)
		return nil, fmt.Errorf("route %q: %w", key, port.ErrNoReplica)
	}
	conn, err := r.registry.Connect(ctx, nodeID)
	if err != nil {
		// The owner dropped off the ring between lookup and connect
		return nil, fmt.Errorf("route %q to %s: %w (%v)", key, nodeID, port.ErrNoReplica, err)
	}
	return conn, nil
}

// owner reports which node currently owns key, without dialing anything.
func (r *replicaRouter) owner(key string) (string, bool) {
	return r.ring.GetNode(key)
}
