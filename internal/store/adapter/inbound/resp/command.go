package resp

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"sync"

	"github.com/anthanhphan/go-replica-coordinator/internal/store/domain"
	"github.com/anthanhphan/go-replica-coordinator/internal/store/port"
	"golang.org/x/time/rate"
)

// formatError converts a service error to a wire error string.
func formatError(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidPath):
		return "ERR invalid path"
	case errors.Is(err, domain.ErrValueTooLarge):
		return "ERR value exceeds maximum size"
	default:
		return "ERR " + err.Error()
	}
}

// limiterRegistry tracks a token bucket per client IP.
type limiterRegistry struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	limit    int
}

func newLimiterRegistry(limit int) *limiterRegistry {
	return &limiterRegistry{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
	}
}

// allow reports whether a command from the given IP fits the budget. A nil
// registry allows everything.
func (r *limiterRegistry) allow(ip string) bool {
	if r == nil {
		return true
	}

	r.mu.RLock()
	limiter, exists := r.limiters[ip]
	r.mu.RUnlock()

	if !exists {
		r.mu.Lock()
		// Double-check after acquiring write lock
		limiter, exists = r.limiters[ip]
		if !exists {
			limiter = rate.NewLimiter(rate.Limit(r.limit), r.limit)
			r.limiters[ip] = limiter
		}
		r.mu.Unlock()
	}
	return limiter.Allow()
}

func clientIP(conn *Conn) string {
	addr := conn.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// CommandHandler dispatches peer commands to the record service.
type CommandHandler struct {
	store    port.StoreService
	secret   string
	database string
	limiters *limiterRegistry
}

// NewCommandHandler creates the handler. The secret is the fleet-wide admin
// credential; rateLimit of zero disables per-IP limiting.
func NewCommandHandler(store port.StoreService, secret, database string, rateLimit int) *CommandHandler {
	h := &CommandHandler{
		store:    store,
		secret:   secret,
		database: database,
	}
	if rateLimit > 0 {
		h.limiters = newLimiterRegistry(rateLimit)
	}
	return h
}

// Handle processes one command and writes the reply to the connection's
// buffered writer. The server flushes after each command.
func (h *CommandHandler) Handle(conn *Conn, args [][]byte) {
	if len(args) == 0 {
		_ = WriteError(conn.bw, "ERR no command")
		return
	}

	cmdName := normalizeCommandName(args[0])

	// Connection-level commands, available before authentication
	switch cmdName {
	case "PING":
		h.handlePing(conn, args)
		return
	case "AUTH":
		h.handleAuth(conn, args)
		return
	case "QUIT":
		h.handleQuit(conn, args)
		return
	}

	if !conn.Authenticated() {
		_ = WriteError(conn.bw, "NOAUTH Authentication required")
		return
	}

	if !h.limiters.allow(clientIP(conn)) {
		_ = WriteError(conn.bw, "ERR rate limit exceeded")
		return
	}

	switch cmdName {
	case "RD.WRITE":
		h.handleWrite(conn, args)
	case "RD.READ":
		h.handleRead(conn, args)
	case "RD.COUNT":
		h.handleCount(conn, args)
	case "RD.PUSH":
		h.handlePush(conn, args)
	case "RD.DB":
		h.handleDB(conn, args)
	default:
		_ = WriteError(conn.bw, "ERR unknown command '"+cmdName+"'")
	}
}

func (h *CommandHandler) handlePing(conn *Conn, args [][]byte) {
	if len(args) > 1 {
		_ = WriteBulk(conn.bw, args[1])
		return
	}
	_ = WriteSimpleString(conn.bw, "PONG")
}

// handleAuth accepts "AUTH <secret>" and "AUTH admin <secret>". go-redis
// sends the two-argument form when only a password is configured.
func (h *CommandHandler) handleAuth(conn *Conn, args [][]byte) {
	if !h.limiters.allow(clientIP(conn)) {
		_ = WriteError(conn.bw, "ERR rate limit exceeded")
		return
	}

	var secret string
	switch len(args) {
	case 2:
		secret = string(args[1])
	case 3:
		if string(args[1]) != "admin" {
			_ = WriteError(conn.bw, "WRONGPASS invalid username-password pair")
			return
		}
		secret = string(args[2])
	default:
		_ = WriteError(conn.bw, "ERR wrong number of arguments for 'AUTH' command")
		return
	}

	if h.secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(h.secret)) != 1 {
		_ = WriteError(conn.bw, "WRONGPASS invalid username-password pair")
		return
	}

	conn.setAuthenticated(true)
	_ = WriteSimpleString(conn.bw, "OK")
}

func (h *CommandHandler) handleQuit(conn *Conn, _ [][]byte) {
	_ = WriteSimpleString(conn.bw, "OK")
	_ = conn.bw.Flush()
	_ = conn.Close()
}

// RD.WRITE <path> <value>
func (h *CommandHandler) handleWrite(conn *Conn, args [][]byte) {
	if len(args) != 3 {
		_ = WriteError(conn.bw, "ERR wrong number of arguments for 'RD.WRITE' command")
		return
	}
	if err := h.store.Write(context.Background(), string(args[1]), args[2]); err != nil {
		_ = WriteError(conn.bw, formatError(err))
		return
	}
	_ = WriteSimpleString(conn.bw, "OK")
}

// RD.READ <path>
func (h *CommandHandler) handleRead(conn *Conn, args [][]byte) {
	if len(args) != 2 {
		_ = WriteError(conn.bw, "ERR wrong number of arguments for 'RD.READ' command")
		return
	}
	value, err := h.store.Read(context.Background(), string(args[1]))
	if err != nil {
		if errors.Is(err, port.ErrPathNotFound) {
			_ = WriteNullBulk(conn.bw)
			return
		}
		_ = WriteError(conn.bw, formatError(err))
		return
	}
	_ = WriteBulk(conn.bw, value)
}

// RD.COUNT <path>
func (h *CommandHandler) handleCount(conn *Conn, args [][]byte) {
	if len(args) != 2 {
		_ = WriteError(conn.bw, "ERR wrong number of arguments for 'RD.COUNT' command")
		return
	}
	count, err := h.store.Count(context.Background(), string(args[1]))
	if err != nil {
		_ = WriteError(conn.bw, formatError(err))
		return
	}
	_ = WriteInteger(conn.bw, count)
}

// RD.PUSH <parent> <value>
func (h *CommandHandler) handlePush(conn *Conn, args [][]byte) {
	if len(args) != 3 {
		_ = WriteError(conn.bw, "ERR wrong number of arguments for 'RD.PUSH' command")
		return
	}
	path, err := h.store.Push(context.Background(), string(args[1]), args[2])
	if err != nil {
		_ = WriteError(conn.bw, formatError(err))
		return
	}
	_ = WriteBulkString(conn.bw, path)
}

// RD.DB replies with the database name so peers can verify they joined the
// right fleet.
func (h *CommandHandler) handleDB(conn *Conn, args [][]byte) {
	if len(args) != 1 {
		_ = WriteError(conn.bw, "ERR wrong number of arguments for 'RD.DB' command")
		return
	}
	_ = WriteBulkString(conn.bw, h.database)
}
