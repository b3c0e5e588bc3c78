package domain

// NodeStatus describes one peer from the registry's point of view.
type NodeStatus struct {
	ID    string `json:"id"`
	Addr  string `json:"addr"`
	State string `json:"state"`
}

// PopulatorStats are the write-loop counters.
type PopulatorStats struct {
	PrimaryWrites      uint64            `json:"primary_writes"`
	PrimaryFailures    uint64            `json:"primary_failures"`
	ReplicaWrites      uint64            `json:"replica_writes"`
	ReplicaFailures    uint64            `json:"replica_failures"`
	ReplicaUnavailable uint64            `json:"replica_unavailable"`
	SamplesRetained    uint64            `json:"samples_retained"`
	QueueDepth         int               `json:"queue_depth"`
	FailuresByKey      map[string]uint64 `json:"failures_by_key,omitempty"`
}

// SamplerStats are the verification-loop counters.
type SamplerStats struct {
	Checks      uint64 `json:"checks"`
	DriftEvents uint64 `json:"drift_events"`
}

// ClusterStatus is the status document served by the admin API.
type ClusterStatus struct {
	NodeID         string         `json:"node_id"`
	Database       string         `json:"database"`
	UptimeSeconds  int64          `json:"uptime_seconds"`
	RingMembers    []string       `json:"ring_members"`
	Nodes          []NodeStatus   `json:"nodes"`
	Populator      PopulatorStats `json:"populator"`
	Sampler        SamplerStats   `json:"sampler"`
	SampleCount    int            `json:"sample_count"`
	SampleCapacity int            `json:"sample_capacity"`
	LocalRecords   int64          `json:"local_records"`
}
