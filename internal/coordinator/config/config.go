package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/anthanhphan/go-replica-coordinator/internal/coordinator/domain"
	"github.com/anthanhphan/gosdk/conflux"
	"github.com/anthanhphan/gosdk/logger"
)

// Config holds a coordinator node's configuration. The admin secret is
// deliberately absent from the file surface; it only ever comes from the
// environment.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Admin     AdminConfig     `json:"admin" yaml:"admin"`
	Cluster   ClusterConfig   `json:"cluster" yaml:"cluster"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	Populator PopulatorConfig `json:"populator" yaml:"populator"`
	Sampler   SamplerConfig   `json:"sampler" yaml:"sampler"`
	Logger    logger.Config   `json:"logger" yaml:"logger"`
}

// ServerConfig tunes the peer-facing record server. Addr overrides the
// listen address; when empty the node listens on its own cluster map entry.
type ServerConfig struct {
	Addr           string `json:"addr" yaml:"addr"`
	ReadTimeoutMS  int    `json:"read_timeout_ms" yaml:"read_timeout_ms"`
	WriteTimeoutMS int    `json:"write_timeout_ms" yaml:"write_timeout_ms"`
	IdleTimeoutMS  int    `json:"idle_timeout_ms" yaml:"idle_timeout_ms"`
	RateLimit      int    `json:"rate_limit" yaml:"rate_limit"`
	TLSCertFile    string `json:"tls_cert_file" yaml:"tls_cert_file"`
	TLSKeyFile     string `json:"tls_key_file" yaml:"tls_key_file"`
}

type AdminConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// NodeConfig is one peer's static dialing parameters.
type NodeConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
	TLS  bool   `json:"tls" yaml:"tls"`
}

type ClusterConfig struct {
	Nodes               map[string]NodeConfig `json:"nodes" yaml:"nodes"`
	Database            string                `json:"database" yaml:"database"`
	LocalID             string                `json:"local_id" yaml:"local_id"`
	DialTimeoutMS       int                   `json:"dial_timeout_ms" yaml:"dial_timeout_ms"`
	HeartbeatIntervalMS int                   `json:"heartbeat_interval_ms" yaml:"heartbeat_interval_ms"`
	ReconcileIntervalMS int                   `json:"reconcile_interval_ms" yaml:"reconcile_interval_ms"`

	// AdminSecret is read from REPLICAD_ADMIN_SECRET, never from the file
	AdminSecret string `json:"-" yaml:"-"`
}

type StoreConfig struct {
	Dir          string `json:"dir" yaml:"dir"`
	SyncWrites   bool   `json:"sync_writes" yaml:"sync_writes"`
	GCIntervalMS int    `json:"gc_interval_ms" yaml:"gc_interval_ms"`
}

type PopulatorConfig struct {
	IntervalMS     int      `json:"interval_ms" yaml:"interval_ms"`
	Jitter         float64  `json:"jitter" yaml:"jitter"`
	Keys           []string `json:"keys" yaml:"keys"`
	SampleRate     float64  `json:"sample_rate" yaml:"sample_rate"`
	SampleCapacity int      `json:"sample_capacity" yaml:"sample_capacity"`
	Workers        int      `json:"workers" yaml:"workers"`
	QueueSize      int      `json:"queue_size" yaml:"queue_size"`
	WriteTimeoutMS int      `json:"write_timeout_ms" yaml:"write_timeout_ms"`
}

type SamplerConfig struct {
	IntervalMS   int     `json:"interval_ms" yaml:"interval_ms"`
	Jitter       float64 `json:"jitter" yaml:"jitter"`
	DriftLogSize int     `json:"drift_log_size" yaml:"drift_log_size"`
}

// DefaultConfig returns configuration with default values. The local node
// ID has no default: each launch must say which node it is.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ReadTimeoutMS:  30000,
			WriteTimeoutMS: 30000,
			IdleTimeoutMS:  300000,
			RateLimit:      200,
		},
		Admin: AdminConfig{
			Addr: ":8091",
		},
		Cluster: ClusterConfig{
			Nodes: map[string]NodeConfig{
				"alpha": {Host: "127.0.0.1", Port: 7501},
				"beta":  {Host: "127.0.0.1", Port: 7502},
				"gamma": {Host: "127.0.0.1", Port: 7503},
			},
			Database:            "coordination",
			DialTimeoutMS:       5000,
			HeartbeatIntervalMS: 15000,
			ReconcileIntervalMS: 5000,
		},
		Store: StoreConfig{
			Dir:          "./data",
			SyncWrites:   false,
			GCIntervalMS: 600000,
		},
		Populator: PopulatorConfig{
			IntervalMS:     5000,
			Jitter:         1.0,
			SampleRate:     0.2,
			SampleCapacity: 64,
			Workers:        4,
			QueueSize:      64,
			WriteTimeoutMS: 3000,
		},
		Sampler: SamplerConfig{
			IntervalMS:   5000,
			Jitter:       1.0,
			DriftLogSize: 32,
		},
		Logger: logger.Config{
			LogLevel:    logger.LevelInfo,
			LogEncoding: logger.EncodingJSON,
		},
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	configPath := path
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH_REPLICAD")
	}
	if configPath == "" {
		env := os.Getenv("ENV")
		if env == "" {
			env = "local"
		}
		configPath = filepath.Join("internal", "coordinator", "config", env+".yaml")
	}

	cfg := DefaultConfig()

	parsedCfg, err := conflux.ParseConfig(configPath, cfg)
	if err != nil {
		log.Printf("Config file not found or failed to parse, using defaults if file not specified. Path: %s, Error: %v", configPath, err)
		if path != "" {
			return nil, err
		}
		cfg.loadSecrets()
		return cfg, nil
	}

	parsedCfg.loadSecrets()
	return parsedCfg, nil
}

// MustLoad loads configuration or exits on error
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) loadSecrets() {
	c.Cluster.AdminSecret = os.Getenv("REPLICAD_ADMIN_SECRET")
}

// Validate rejects configurations the process must not start with.
func (c *Config) Validate() error {
	if len(c.Cluster.Nodes) == 0 {
		return fmt.Errorf("cluster.nodes is empty")
	}
	if c.Cluster.Database == "" {
		return fmt.Errorf("cluster.database is empty")
	}
	if c.Cluster.LocalID == "" {
		return fmt.Errorf("local node ID is not set (use --node, REPLICAD_NODE_ID, or cluster.local_id)")
	}
	if _, ok := c.Cluster.Nodes[c.Cluster.LocalID]; !ok {
		return fmt.Errorf("local node ID %q is not in cluster.nodes", c.Cluster.LocalID)
	}
	if c.Cluster.AdminSecret == "" {
		return fmt.Errorf("admin secret is not set (export REPLICAD_ADMIN_SECRET)")
	}
	for id, node := range c.Cluster.Nodes {
		if node.Host == "" || node.Port <= 0 {
			return fmt.Errorf("node %q has an invalid endpoint %q:%d", id, node.Host, node.Port)
		}
	}
	return nil
}

// sortedNodeIDs returns every configured node ID, local included.
func (c *Config) sortedNodeIDs() []string {
	ids := make([]string, 0, len(c.Cluster.Nodes))
	for id := range c.Cluster.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PeerIDs returns the other nodes' IDs in sorted order.
func (c *Config) PeerIDs() []string {
	ids := make([]string, 0, len(c.Cluster.Nodes)-1)
	for _, id := range c.sortedNodeIDs() {
		if id != c.Cluster.LocalID {
			ids = append(ids, id)
		}
	}
	return ids
}

// PeerEndpoints maps every peer (local excluded) to its dialing endpoint.
func (c *Config) PeerEndpoints() map[string]domain.Endpoint {
	endpoints := make(map[string]domain.Endpoint, len(c.Cluster.Nodes)-1)
	for id, node := range c.Cluster.Nodes {
		if id == c.Cluster.LocalID {
			continue
		}
		endpoints[id] = domain.Endpoint{Host: node.Host, Port: node.Port, TLS: node.TLS}
	}
	return endpoints
}

// LocalEndpoint returns the local node's cluster map entry.
func (c *Config) LocalEndpoint() domain.Endpoint {
	node := c.Cluster.Nodes[c.Cluster.LocalID]
	return domain.Endpoint{Host: node.Host, Port: node.Port, TLS: node.TLS}
}

// LocalNodeIndex is the local node's position in the sorted ID list. It
// seeds the snowflake generator, so generated record paths are unique
// across the fleet without extra configuration.
func (c *Config) LocalNodeIndex() int64 {
	for i, id := range c.sortedNodeIDs() {
		if id == c.Cluster.LocalID {
			return int64(i)
		}
	}
	return 0
}

// ListenAddr is the peer server's bind address.
func (c *Config) ListenAddr() string {
	if c.Server.Addr != "" {
		return c.Server.Addr
	}
	return c.LocalEndpoint().Addr()
}

func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMS) * time.Millisecond
}

func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutMS) * time.Millisecond
}

func (s ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutMS) * time.Millisecond
}

func (c ClusterConfig) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutMS) * time.Millisecond
}

func (c ClusterConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalMS) * time.Millisecond
}

func (c ClusterConfig) ReconcileInterval() time.Duration {
	return time.Duration(c.ReconcileIntervalMS) * time.Millisecond
}

func (s StoreConfig) GCInterval() time.Duration {
	return time.Duration(s.GCIntervalMS) * time.Millisecond
}

func (p PopulatorConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMS) * time.Millisecond
}

func (p PopulatorConfig) WriteTimeout() time.Duration {
	return time.Duration(p.WriteTimeoutMS) * time.Millisecond
}

func (s SamplerConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMS) * time.Millisecond
}
