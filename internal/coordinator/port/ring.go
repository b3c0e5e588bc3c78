package port

// HashRing is the key-ownership lookup the coordinator relies on.
//
// Implementations must be deterministic (same key and membership resolve to
// the same owner in any process) and must only reassign keys owned by a
// member when that member is removed. pkg/ring provides the conforming
// implementation.
type HashRing interface {
	// AddNode registers a member. Re-adding an existing member is a no-op.
	AddNode(id string)

	// RemoveNode unregisters a member. Unknown members are a no-op.
	RemoveNode(id string)

	// GetNode returns the owner of key, or false when the ring is empty.
	GetNode(key string) (string, bool)

	// Members returns the current membership in sorted order.
	Members() []string
}
