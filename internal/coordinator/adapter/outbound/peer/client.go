// Package peer dials other nodes' record stores over their wire protocol
// and adapts the sessions to the coordinator's connection port.
package peer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/anthanhphan/go-replica-coordinator/internal/coordinator/domain"
	"github.com/anthanhphan/go-replica-coordinator/internal/coordinator/port"
	storeport "github.com/anthanhphan/go-replica-coordinator/internal/store/port"
	"github.com/anthanhphan/gosdk/logger"
)

const (
	DefaultDialTimeout       = 5 * time.Second
	DefaultHeartbeatInterval = 15 * time.Second
)

// Config holds the dialing and session-monitoring settings shared by all
// peer connections.
type Config struct {
	// Secret authenticates against the peer's server.
	Secret string
	// Database is the fleet's shared database name; peers serving a
	// different one are rejected at dial time.
	Database string
	// DialTimeout bounds connection establishment and the heartbeat ping.
	DialTimeout time.Duration
	// HeartbeatInterval is the gap between liveness pings.
	HeartbeatInterval time.Duration
}

// Dialer opens authenticated sessions to peer nodes.
type Dialer struct {
	cfg Config
}

var _ port.PeerDialer = (*Dialer)(nil)

func NewDialer(cfg Config) *Dialer {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	return &Dialer{cfg: cfg}
}

// Dial connects to the endpoint, authenticates, and verifies the peer
// serves the fleet's database before handing the session out. Each session
// holds a single underlying connection so its liveness is unambiguous.
func (d *Dialer) Dial(ctx context.Context, nodeID string, endpoint domain.Endpoint) (port.PeerConn, error) {
	opts := &redis.Options{
		Addr:        endpoint.Addr(),
		Password:    d.cfg.Secret,
		DialTimeout: d.cfg.DialTimeout,
		PoolSize:    1,
		// Failures surface to the registry instead of being retried here
		MaxRetries: -1,
	}
	if endpoint.TLS {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: endpoint.Host,
		}
	}
	client := redis.NewClient(opts)

	dialCtx, cancel := context.WithTimeout(ctx, d.cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(dialCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping %s: %w", endpoint.Addr(), err)
	}
	database, err := client.Do(dialCtx, "RD.DB").Text()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("identify %s: %w", endpoint.Addr(), err)
	}
	if database != d.cfg.Database {
		_ = client.Close()
		return nil, fmt.Errorf("node %s serves database %q, want %q", nodeID, database, d.cfg.Database)
	}

	conn := &Conn{
		nodeID:       nodeID,
		client:       client,
		pingInterval: d.cfg.HeartbeatInterval,
		pingTimeout:  d.cfg.DialTimeout,
		notify:       make(chan struct{}),
		stop:         make(chan struct{}),
	}
	go conn.monitor()

	logger.Debugw("Peer session opened", "node", nodeID, "addr", endpoint.Addr())
	return conn, nil
}

// Conn is one authenticated session to a peer's record store.
type Conn struct {
	nodeID       string
	client       *redis.Client
	pingInterval time.Duration
	pingTimeout  time.Duration

	notify    chan struct{}
	stop      chan struct{}
	closeOnce sync.Once
}

var _ port.PeerConn = (*Conn)(nil)

func (c *Conn) Write(ctx context.Context, path string, value []byte) error {
	return c.observe(c.client.Do(ctx, "RD.WRITE", path, value).Err())
}

func (c *Conn) Read(ctx context.Context, path string) ([]byte, error) {
	value, err := c.client.Do(ctx, "RD.READ", path).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storeport.ErrPathNotFound
		}
		return nil, c.observe(err)
	}
	return []byte(value), nil
}

func (c *Conn) Count(ctx context.Context, path string) (int64, error) {
	count, err := c.client.Do(ctx, "RD.COUNT", path).Int64()
	if err != nil {
		return 0, c.observe(err)
	}
	return count, nil
}

func (c *Conn) Ping(ctx context.Context) error {
	return c.observe(c.client.Ping(ctx).Err())
}

// Notify returns the channel closed when the session dies, whether by a
// failed heartbeat, a transport error on use, or Close.
func (c *Conn) Notify() <-chan struct{} {
	return c.notify
}

func (c *Conn) Close() error {
	c.shutdown()
	return nil
}

// observe inspects an operation error and tears the session down when it
// indicates the transport is gone. Server-sent errors and caller timeouts
// pass through; the connection under them is still good.
func (c *Conn) observe(err error) error {
	if err != nil && isTransportError(err) {
		c.shutdown()
	}
	return err
}

func isTransportError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var redisErr redis.Error
	return !errors.As(err, &redisErr)
}

// monitor pings the peer until the session dies. The heartbeat keeps the
// connection inside the server's idle window and notices a dead peer even
// when no writes are routed its way.
func (c *Conn) monitor() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.pingTimeout)
			err := c.client.Ping(ctx).Err()
			cancel()
			if err != nil && (isTransportError(err) || errors.Is(err, context.DeadlineExceeded)) {
				logger.Warnw("Peer heartbeat failed", "node", c.nodeID, "error", err)
				c.shutdown()
				return
			}
		}
	}
}

func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		close(c.stop)
		close(c.notify)
		if err := c.client.Close(); err != nil {
			logger.Debugw("Close peer session failed", "node", c.nodeID, "error", err)
		}
	})
}
