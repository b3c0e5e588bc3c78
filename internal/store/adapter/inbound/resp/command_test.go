package resp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/anthanhphan/go-replica-coordinator/internal/store/port"
)

// testConn wires a Conn to an in-memory buffer so handler output can be
// inspected without a real socket.
type testConn struct {
	*Conn
	output *bytes.Buffer
	server net.Conn
	client net.Conn
}

func newTestConn() *testConn {
	server, client := net.Pipe()
	output := &bytes.Buffer{}

	tc := &testConn{
		output: output,
		server: server,
		client: client,
	}
	tc.Conn = &Conn{
		netConn: server,
		br:      bufio.NewReader(server),
		bw:      bufio.NewWriter(output),
	}
	return tc
}

func (tc *testConn) Close() {
	_ = tc.server.Close()
	_ = tc.client.Close()
}

func (tc *testConn) FlushAndGetOutput() string {
	_ = tc.bw.Flush()
	return tc.output.String()
}

func (tc *testConn) Reset() {
	tc.output.Reset()
}

// fakeStore is a hand-rolled StoreService for handler tests.
type fakeStore struct {
	writeFn func(ctx context.Context, path string, value []byte) error
	readFn  func(ctx context.Context, path string) ([]byte, error)
	countFn func(ctx context.Context, path string) (int64, error)
	pushFn  func(ctx context.Context, parent string, value []byte) (string, error)
}

func (f *fakeStore) Write(ctx context.Context, path string, value []byte) error {
	if f.writeFn != nil {
		return f.writeFn(ctx, path, value)
	}
	return nil
}

func (f *fakeStore) Read(ctx context.Context, path string) ([]byte, error) {
	if f.readFn != nil {
		return f.readFn(ctx, path)
	}
	return nil, port.ErrPathNotFound
}

func (f *fakeStore) Count(ctx context.Context, path string) (int64, error) {
	if f.countFn != nil {
		return f.countFn(ctx, path)
	}
	return 0, nil
}

func (f *fakeStore) Push(ctx context.Context, parent string, value []byte) (string, error) {
	if f.pushFn != nil {
		return f.pushFn(ctx, parent, value)
	}
	return parent + "/1", nil
}

func args(parts ...string) [][]byte {
	out := make([][]byte, 0, len(parts))
	for _, p := range parts {
		out = append(out, []byte(p))
	}
	return out
}

func TestHandle_RequiresAuth(t *testing.T) {
	h := NewCommandHandler(&fakeStore{}, "secret", "coordination", 0)
	tc := newTestConn()
	defer tc.Close()

	h.Handle(tc.Conn, args("RD.READ", "/test/a"))

	out := tc.FlushAndGetOutput()
	if !strings.HasPrefix(out, "-NOAUTH") {
		t.Fatalf("Expected NOAUTH error, got %q", out)
	}
}

func TestHandle_Ping(t *testing.T) {
	h := NewCommandHandler(&fakeStore{}, "secret", "coordination", 0)
	tc := newTestConn()
	defer tc.Close()

	h.Handle(tc.Conn, args("PING"))
	if out := tc.FlushAndGetOutput(); out != "+PONG\r\n" {
		t.Fatalf("Expected +PONG, got %q", out)
	}

	tc.Reset()
	h.Handle(tc.Conn, args("PING", "hello"))
	if out := tc.FlushAndGetOutput(); out != "$5\r\nhello\r\n" {
		t.Fatalf("Expected echo, got %q", out)
	}
}

func TestHandle_Auth(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantPrefix string
		wantAuthed bool
	}{
		{
			name:       "correct secret",
			args:       []string{"AUTH", "secret"},
			wantPrefix: "+OK",
			wantAuthed: true,
		},
		{
			name:       "correct admin pair",
			args:       []string{"AUTH", "admin", "secret"},
			wantPrefix: "+OK",
			wantAuthed: true,
		},
		{
			name:       "wrong secret",
			args:       []string{"AUTH", "nope"},
			wantPrefix: "-WRONGPASS",
		},
		{
			name:       "wrong username",
			args:       []string{"AUTH", "root", "secret"},
			wantPrefix: "-WRONGPASS",
		},
		{
			name:       "wrong arity",
			args:       []string{"AUTH"},
			wantPrefix: "-ERR wrong number of arguments",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCommandHandler(&fakeStore{}, "secret", "coordination", 0)
			tc := newTestConn()
			defer tc.Close()

			h.Handle(tc.Conn, args(tt.args...))

			out := tc.FlushAndGetOutput()
			if !strings.HasPrefix(out, tt.wantPrefix) {
				t.Errorf("Expected prefix %q, got %q", tt.wantPrefix, out)
			}
			if tc.Authenticated() != tt.wantAuthed {
				t.Errorf("Expected authenticated=%v", tt.wantAuthed)
			}
		})
	}
}

func TestHandle_AuthEmptyServerSecret(t *testing.T) {
	h := NewCommandHandler(&fakeStore{}, "", "coordination", 0)
	tc := newTestConn()
	defer tc.Close()

	// An empty configured secret must never authenticate anyone
	h.Handle(tc.Conn, args("AUTH", ""))
	out := tc.FlushAndGetOutput()
	if !strings.HasPrefix(out, "-WRONGPASS") {
		t.Fatalf("Expected WRONGPASS, got %q", out)
	}
}

func TestHandle_Write(t *testing.T) {
	var gotPath string
	var gotValue []byte
	store := &fakeStore{
		writeFn: func(_ context.Context, path string, value []byte) error {
			gotPath, gotValue = path, value
			return nil
		},
	}
	h := NewCommandHandler(store, "secret", "coordination", 0)
	tc := newTestConn()
	defer tc.Close()
	tc.setAuthenticated(true)

	h.Handle(tc.Conn, args("RD.WRITE", "/test/a/1", `{"msg":"x","ts":1}`))

	if out := tc.FlushAndGetOutput(); out != "+OK\r\n" {
		t.Fatalf("Expected +OK, got %q", out)
	}
	if gotPath != "/test/a/1" || string(gotValue) != `{"msg":"x","ts":1}` {
		t.Errorf("Store received path=%q value=%q", gotPath, string(gotValue))
	}
}

func TestHandle_WriteError(t *testing.T) {
	store := &fakeStore{
		writeFn: func(context.Context, string, []byte) error {
			return errors.New("disk full")
		},
	}
	h := NewCommandHandler(store, "secret", "coordination", 0)
	tc := newTestConn()
	defer tc.Close()
	tc.setAuthenticated(true)

	h.Handle(tc.Conn, args("RD.WRITE", "/test/a/1", "v"))

	out := tc.FlushAndGetOutput()
	if !strings.HasPrefix(out, "-ERR disk full") {
		t.Fatalf("Expected error reply, got %q", out)
	}
}

func TestHandle_Read(t *testing.T) {
	store := &fakeStore{
		readFn: func(_ context.Context, path string) ([]byte, error) {
			if path == "/test/a/1" {
				return []byte("payload"), nil
			}
			return nil, port.ErrPathNotFound
		},
	}
	h := NewCommandHandler(store, "secret", "coordination", 0)
	tc := newTestConn()
	defer tc.Close()
	tc.setAuthenticated(true)

	h.Handle(tc.Conn, args("RD.READ", "/test/a/1"))
	if out := tc.FlushAndGetOutput(); out != "$7\r\npayload\r\n" {
		t.Fatalf("Expected payload bulk, got %q", out)
	}

	tc.Reset()
	h.Handle(tc.Conn, args("RD.READ", "/test/missing"))
	if out := tc.FlushAndGetOutput(); out != "$-1\r\n" {
		t.Fatalf("Expected null bulk for missing path, got %q", out)
	}
}

func TestHandle_Count(t *testing.T) {
	store := &fakeStore{
		countFn: func(_ context.Context, path string) (int64, error) {
			if path != "/test/a" {
				t.Errorf("Unexpected count path %q", path)
			}
			return 3, nil
		},
	}
	h := NewCommandHandler(store, "secret", "coordination", 0)
	tc := newTestConn()
	defer tc.Close()
	tc.setAuthenticated(true)

	h.Handle(tc.Conn, args("RD.COUNT", "/test/a"))
	if out := tc.FlushAndGetOutput(); out != ":3\r\n" {
		t.Fatalf("Expected :3, got %q", out)
	}
}

func TestHandle_Push(t *testing.T) {
	store := &fakeStore{
		pushFn: func(_ context.Context, parent string, value []byte) (string, error) {
			return parent + "/12345", nil
		},
	}
	h := NewCommandHandler(store, "secret", "coordination", 0)
	tc := newTestConn()
	defer tc.Close()
	tc.setAuthenticated(true)

	h.Handle(tc.Conn, args("RD.PUSH", "/test/a", `{"msg":"x","ts":1}`))
	if out := tc.FlushAndGetOutput(); out != "$13\r\n/test/a/12345\r\n" {
		t.Fatalf("Expected generated path, got %q", out)
	}
}

func TestHandle_DB(t *testing.T) {
	h := NewCommandHandler(&fakeStore{}, "secret", "coordination", 0)
	tc := newTestConn()
	defer tc.Close()
	tc.setAuthenticated(true)

	h.Handle(tc.Conn, args("RD.DB"))
	if out := tc.FlushAndGetOutput(); out != "$12\r\ncoordination\r\n" {
		t.Fatalf("Expected database name, got %q", out)
	}
}

func TestHandle_UnknownCommand(t *testing.T) {
	h := NewCommandHandler(&fakeStore{}, "secret", "coordination", 0)
	tc := newTestConn()
	defer tc.Close()
	tc.setAuthenticated(true)

	h.Handle(tc.Conn, args("HELLO", "3"))
	out := tc.FlushAndGetOutput()
	if !strings.HasPrefix(out, "-ERR unknown command") {
		t.Fatalf("Expected unknown command error, got %q", out)
	}
}

func TestHandle_RateLimit(t *testing.T) {
	h := NewCommandHandler(&fakeStore{}, "secret", "coordination", 1)
	tc := newTestConn()
	defer tc.Close()
	tc.setAuthenticated(true)

	h.Handle(tc.Conn, args("RD.COUNT", "/test/a"))
	first := tc.FlushAndGetOutput()
	if strings.HasPrefix(first, "-ERR rate limit") {
		t.Fatalf("First command should pass, got %q", first)
	}

	tc.Reset()
	h.Handle(tc.Conn, args("RD.COUNT", "/test/a"))
	second := tc.FlushAndGetOutput()
	if !strings.HasPrefix(second, "-ERR rate limit exceeded") {
		t.Fatalf("Expected rate limit error, got %q", second)
	}
}
