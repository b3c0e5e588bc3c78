package port

import (
	"context"
	"errors"

	"github.com/anthanhphan/go-replica-coordinator/internal/coordinator/domain"
)

var (
	// ErrNoReplica means no live peer can serve the key right now.
	ErrNoReplica = errors.New("no replica available")

	// ErrUnknownNode means the node ID is not in the cluster map.
	ErrUnknownNode = errors.New("unknown node")

	// ErrConnectInFlight means another connect attempt for the same node
	// currently holds the per-node gate.
	ErrConnectInFlight = errors.New("connect already in flight")

	// ErrRegistryClosed means the registry has shut down.
	ErrRegistryClosed = errors.New("connection registry closed")
)

//go:generate mockgen -destination=../service/mocks/peer_mock.go -package=mocks -source=peer.go

// PeerConn is an open session to one peer node. Implementations proxy the
// record operations over the wire.
type PeerConn interface {
	// Write stores value at path on the peer.
	Write(ctx context.Context, path string, value []byte) error

	// Read returns the value at path on the peer.
	Read(ctx context.Context, path string) ([]byte, error)

	// Count returns the number of records under path on the peer.
	Count(ctx context.Context, path string) (int64, error)

	// Ping checks session liveness.
	Ping(ctx context.Context) error

	// Notify returns a channel that is closed exactly once, when the
	// session dies for any reason.
	Notify() <-chan struct{}

	// Close tears the session down.
	Close() error
}

// PeerDialer opens sessions to peers.
type PeerDialer interface {
	// Dial connects to the endpoint and validates the session. It must not
	// return a handle whose Notify channel is unset.
	Dial(ctx context.Context, nodeID string, endpoint domain.Endpoint) (PeerConn, error)
}
