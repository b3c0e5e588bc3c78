package ring

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spaolacci/murmur3"
)

const (
	// DefaultVirtualNodes is the default number of virtual nodes per member.
	// A higher number improves distribution balance but increases ring size.
	DefaultVirtualNodes = 256
)

// vnode is a single position on the ring owned by a member.
type vnode struct {
	token  uint64
	nodeID string
}

// Ring is a consistent hashing ring mapping keys to member IDs.
//
// Lookups are deterministic: the same key on the same membership always
// resolves to the same member, regardless of the order members were added.
// Removing a member only reassigns the keys that member owned; keys owned
// by surviving members keep their owner.
type Ring struct {
	mu           sync.RWMutex
	vnodes       []vnode // Sorted list of all vnodes on the ring
	members      map[string]struct{}
	virtualNodes int
}

// New creates an empty ring.
func New(virtualNodes int) *Ring {
	if virtualNodes <= 0 {
		virtualNodes = DefaultVirtualNodes
	}
	return &Ring{
		vnodes:       make([]vnode, 0),
		members:      make(map[string]struct{}),
		virtualNodes: virtualNodes,
	}
}

// AddNode adds a member to the ring. Adding an existing member is a no-op,
// so callers may re-add on every reconnect without disturbing ownership.
func (r *Ring) AddNode(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.members[id]; exists {
		return
	}
	r.members[id] = struct{}{}

	// Generate vnodes for this member
	for i := 0; i < r.virtualNodes; i++ {
		token := hashKey(fmt.Sprintf("%s-%d", id, i))
		r.vnodes = append(r.vnodes, vnode{
			token:  token,
			nodeID: id,
		})
	}

	// Sort vnodes by token
	sort.Slice(r.vnodes, func(i, j int) bool {
		return r.vnodes[i].token < r.vnodes[j].token
	})
}

// RemoveNode removes a member from the ring. Removing an unknown member is
// a no-op.
func (r *Ring) RemoveNode(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.members[id]; !exists {
		return
	}
	delete(r.members, id)

	// Filter out vnodes belonging to this member
	kept := make([]vnode, 0, len(r.vnodes))
	for _, vn := range r.vnodes {
		if vn.nodeID != id {
			kept = append(kept, vn)
		}
	}
	r.vnodes = kept
}

// GetNode returns the member that owns the given key. The second return
// value is false when the ring has no members.
func (r *Ring) GetNode(key string) (string, bool) {
	token := hashKey(key)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.vnodes) == 0 {
		return "", false
	}

	// Binary search for the first vnode with token >= target token
	idx := sort.Search(len(r.vnodes), func(i int) bool {
		return r.vnodes[i].token >= token
	})

	// Wrap around to the first vnode if we reached the end
	if idx == len(r.vnodes) {
		idx = 0
	}
	return r.vnodes[idx].nodeID, true
}

// Members returns the current members in sorted order.
func (r *Ring) Members() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]string, 0, len(r.members))
	for id := range r.members {
		members = append(members, id)
	}
	sort.Strings(members)
	return members
}

// Size returns the number of members on the ring.
func (r *Ring) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// hashKey generates a token for a string key. Murmur3 is seedless, so
// tokens are stable across processes.
func hashKey(key string) uint64 {
	return murmur3.Sum64([]byte(key))
}
