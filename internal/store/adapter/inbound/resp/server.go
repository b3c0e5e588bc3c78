// Package resp exposes the local record store to peers over the Redis
// serialization protocol with a small custom command set.
package resp

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anthanhphan/gosdk/logger"
)

// Config holds the peer-facing server configuration.
type Config struct {
	// Addr is the listen address, e.g. "127.0.0.1:7501".
	Addr string
	// TLSCertFile and TLSKeyFile enable a TLS listener when both are set.
	TLSCertFile string
	TLSKeyFile  string
	// ReadTimeout bounds reading a single command.
	ReadTimeout time.Duration
	// WriteTimeout bounds writing a reply.
	WriteTimeout time.Duration
	// IdleTimeout bounds the gap between commands on an open connection.
	IdleTimeout time.Duration
}

// Server accepts peer connections and dispatches commands to the handler.
type Server struct {
	cfg     Config
	handler *CommandHandler
	ln      net.Listener
	running atomic.Bool
	wg      sync.WaitGroup

	connMu sync.Mutex
	conns  map[*Conn]struct{}
}

// Conn is a single peer connection.
type Conn struct {
	netConn net.Conn
	br      *bufio.Reader
	bw      *bufio.Writer

	stateMu sync.RWMutex
	authed  bool

	closed atomic.Bool
}

func newConn(c net.Conn) *Conn {
	return &Conn{
		netConn: c,
		br:      bufio.NewReader(c),
		bw:      bufio.NewWriter(c),
	}
}

func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.netConn.Close()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

func (c *Conn) Authenticated() bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.authed
}

func (c *Conn) setAuthenticated(v bool) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.authed = v
}

// NewServer creates the peer server.
func NewServer(cfg Config, handler *CommandHandler) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	return &Server{
		cfg:     cfg,
		handler: handler,
		conns:   make(map[*Conn]struct{}),
	}
}

// Listen binds the configured address. Call it before Serve.
func (s *Server) Listen() error {
	ln, err := s.listen()
	if err != nil {
		return err
	}
	s.ln = ln
	s.running.Store(true)
	return nil
}

// Addr returns the bound listener address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until Stop is called. It blocks.
func (s *Server) Serve(ctx context.Context) error {
	logger.Infow("Peer server listening", "addr", s.ln.Addr().String(), "tls", s.cfg.TLSCertFile != "")
	return s.acceptLoop(ctx, s.ln)
}

// Start binds and serves until Stop is called. It blocks.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

func (s *Server) listen() (net.Listener, error) {
	if s.cfg.TLSCertFile != "" && s.cfg.TLSKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load tls keypair: %w", err)
		}
		tlsCfg := &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		return tls.Listen("tcp", s.cfg.Addr, tlsCfg)
	}
	return net.Listen("tcp", s.cfg.Addr)
}

// Stop closes the listener and all open connections, then waits for
// their handlers to finish.
func (s *Server) Stop(ctx context.Context) error {
	s.running.Store(false)

	var firstErr error
	if s.ln != nil {
		if err := s.ln.Close(); err != nil {
			firstErr = err
		}
	}

	s.connMu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.connMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return firstErr
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			if !s.running.Load() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		conn := newConn(c)
		s.connMu.Lock()
		s.conns[conn] = struct{}{}
		s.connMu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				s.connMu.Lock()
				delete(s.conns, conn)
				s.connMu.Unlock()
			}()
			s.serveConn(conn)
		}()
	}
}

func (s *Server) serveConn(c *Conn) {
	defer func() { _ = c.Close() }()

	for {
		// First byte waits on the idle timeout so connections can sit
		// between commands.
		if err := c.netConn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
			return
		}
		if _, err := c.br.Peek(1); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				logger.Debugw("Peer connection idle timeout", "remote", c.RemoteAddr().String())
				return
			}
			logger.Debugw("Peer connection read error", "remote", c.RemoteAddr().String(), "error", err)
			return
		}

		// After the first byte, tighten to the per-command read timeout
		if err := c.netConn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			return
		}

		args, err := ReadCommand(c.br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				logger.Debugw("Peer connection read timeout", "remote", c.RemoteAddr().String())
				return
			}
			if errors.Is(err, ErrLimitExceeded) {
				logger.Warnw("Peer protocol limit exceeded", "remote", c.RemoteAddr().String(), "error", err)
				_ = c.netConn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
				_ = WriteError(c.bw, "ERR protocol limit exceeded")
				_ = c.bw.Flush()
				return
			}
			_ = c.netConn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			_ = WriteError(c.bw, "ERR protocol error: "+err.Error())
			_ = c.bw.Flush()
			return
		}

		if len(args) == 0 {
			continue
		}

		s.handler.Handle(c, args)

		if err := c.netConn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			return
		}
		if err := c.bw.Flush(); err != nil {
			return
		}
	}
}
