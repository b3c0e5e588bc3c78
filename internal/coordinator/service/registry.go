package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/anthanhphan/go-replica-coordinator/internal/coordinator/domain"
	"github.com/anthanhphan/go-replica-coordinator/internal/coordinator/port"
	"github.com/anthanhphan/gosdk/logger"
)

// nodeState tracks where a peer is in its connection lifecycle.
type nodeState int

const (
	// StateRemoved means no session exists; the node sits in the removed
	// working set until a reconnect attempt succeeds.
	StateRemoved nodeState = iota
	// StateConnecting means a dial is in flight. The state doubles as a
	// per-node gate: a second connect attempt fails fast instead of racing
	// the first.
	StateConnecting
	// StateLive means the session is usable and the node is on the ring.
	StateLive
)

func (s nodeState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateLive:
		return "live"
	default:
		return "removed"
	}
}

// registryEntry is the registry's record for one peer. gen increments on
// every successful connect so stale disconnect notifications from a
// superseded session can be told apart from the current one.
type registryEntry struct {
	state nodeState
	conn  port.PeerConn
	gen   uint64
}

// registryStats are cheap counters surfaced on the admin API and metrics.
type registryStats struct {
	connects     atomic.Uint64
	dialFailures atomic.Uint64
	disconnects  atomic.Uint64
}

// ConnectionRegistry is the single owner of peer sessions and ring
// membership. Everything else holds node IDs and asks the registry for a
// handle; nothing else stores connections or mutates the ring.
type ConnectionRegistry struct {
	mu        sync.Mutex
	entries   map[string]*registryEntry
	endpoints map[string]domain.Endpoint
	ring      port.HashRing
	dialer    port.PeerDialer
	closed    bool

	stats registryStats
}

// NewConnectionRegistry seeds every known peer in the removed working set,
// so the first reconciler pass dials the whole fleet.
func NewConnectionRegistry(ring port.HashRing, dialer port.PeerDialer, endpoints map[string]domain.Endpoint) *ConnectionRegistry {
	entries := make(map[string]*registryEntry, len(endpoints))
	for id := range endpoints {
		entries[id] = &registryEntry{state: StateRemoved}
	}
	return &ConnectionRegistry{
		entries:   entries,
		endpoints: endpoints,
		ring:      ring,
		dialer:    dialer,
	}
}

// Connect returns a session to the given node, dialing if necessary.
//
// Idempotent on live nodes: the existing handle is returned. While a dial
// is in flight the node is gated and Connect fails with ErrConnectInFlight.
// On dial failure the node lands in the removed working set and the error
// is returned for the caller to log.
func (r *ConnectionRegistry) Connect(ctx context.Context, nodeID string) (port.PeerConn, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, port.ErrRegistryClosed
	}
	entry, ok := r.entries[nodeID]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", port.ErrUnknownNode, nodeID)
	}
	switch entry.state {
	case StateLive:
		conn := entry.conn
		r.mu.Unlock()
		return conn, nil
	case StateConnecting:
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", port.ErrConnectInFlight, nodeID)
	}
	entry.state = StateConnecting
	endpoint := r.endpoints[nodeID]
	r.mu.Unlock()

	// Dial outside the lock so a slow peer never blocks the registry
	conn, err := r.dialer.Dial(ctx, nodeID, endpoint)

	r.mu.Lock()
	if err != nil {
		entry.state = StateRemoved
		r.mu.Unlock()
		r.stats.dialFailures.Add(1)
		return nil, fmt.Errorf("connect %s: %w", nodeID, err)
	}
	if r.closed {
		entry.state = StateRemoved
		r.mu.Unlock()
		_ = conn.Close()
		return nil, port.ErrRegistryClosed
	}
	entry.conn = conn
	entry.gen++
	gen := entry.gen
	entry.state = StateLive
	r.ring.AddNode(nodeID)
	r.mu.Unlock()

	r.stats.connects.Add(1)
	logger.Infow("Peer connection established", "node", nodeID, "addr", endpoint.Addr())

	go r.watchDisconnect(nodeID, conn, gen)
	return conn, nil
}

// watchDisconnect waits for the session to die and runs the removal
// transition for it.
func (r *ConnectionRegistry) watchDisconnect(nodeID string, conn port.PeerConn, gen uint64) {
	<-conn.Notify()
	r.handleDisconnect(nodeID, gen)
}

// handleDisconnect moves a node from Live to Removed: off the ring, handle
// discarded, into the removed working set. The generation check makes the
// transition run exactly once per disconnect; notifications from sessions
// that were already replaced or closed are ignored.
func (r *ConnectionRegistry) handleDisconnect(nodeID string, gen uint64) {
	r.mu.Lock()
	entry, ok := r.entries[nodeID]
	if !ok || entry.state != StateLive || entry.gen != gen {
		r.mu.Unlock()
		return
	}
	r.ring.RemoveNode(nodeID)
	conn := entry.conn
	entry.conn = nil
	entry.state = StateRemoved
	r.mu.Unlock()

	_ = conn.Close()
	r.stats.disconnects.Add(1)
	logger.Warnw("Peer connection lost, node moved to removed set", "node", nodeID)
}

// IsLive reports whether a usable session to the node exists.
func (r *ConnectionRegistry) IsLive(nodeID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[nodeID]
	return ok && entry.state == StateLive
}

// Live returns the IDs of nodes with usable sessions, sorted.
func (r *ConnectionRegistry) Live() []string {
	return r.idsInState(StateLive)
}

// Removed returns the removed working set, sorted. The set is derived from
// entry state so it can never disagree with the ring.
func (r *ConnectionRegistry) Removed() []string {
	return r.idsInState(StateRemoved)
}

func (r *ConnectionRegistry) idsInState(state nodeState) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.entries))
	for id, entry := range r.entries {
		if entry.state == state {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// States snapshots every node's lifecycle state for the admin surface.
func (r *ConnectionRegistry) States() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]string, len(r.entries))
	for id, entry := range r.entries {
		out[id] = entry.state.String()
	}
	return out
}

// Stats returns connect, dial-failure and disconnect totals.
func (r *ConnectionRegistry) Stats() (connects, dialFailures, disconnects uint64) {
	return r.stats.connects.Load(), r.stats.dialFailures.Load(), r.stats.disconnects.Load()
}

// Close shuts the registry down: no further connects, every node off the
// ring, every session closed. Dials still in flight are discarded when they
// return.
func (r *ConnectionRegistry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true

	conns := make([]port.PeerConn, 0, len(r.entries))
	for id, entry := range r.entries {
		if entry.state == StateLive {
			r.ring.RemoveNode(id)
			conns = append(conns, entry.conn)
			entry.conn = nil
		}
		entry.state = StateRemoved
	}
	r.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
	logger.Info("Connection registry closed")
}
