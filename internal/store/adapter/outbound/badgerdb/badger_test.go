package badgerdb

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/anthanhphan/go-replica-coordinator/internal/store/port"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dir, err := os.MkdirTemp("", "badgerdb_test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	store, err := New(Config{Dir: dir})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_WriteRead(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Write(ctx, "/test/a/1", []byte(`{"msg":"x","ts":1}`)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	value, err := store.Read(ctx, "/test/a/1")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(value) != `{"msg":"x","ts":1}` {
		t.Errorf("Unexpected value: %s", string(value))
	}
}

func TestStore_WriteOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Write(ctx, "/test/a/1", []byte("first")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := store.Write(ctx, "/test/a/1", []byte("second")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	value, err := store.Read(ctx, "/test/a/1")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(value) != "second" {
		t.Errorf("Expected 'second', got '%s'", string(value))
	}
}

func TestStore_ReadMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Read(context.Background(), "/test/missing")
	if !errors.Is(err, port.ErrPathNotFound) {
		t.Fatalf("Expected ErrPathNotFound, got %v", err)
	}
}

func TestStore_Count(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	paths := []string{"/test/a/1", "/test/a/2", "/test/a/3", "/test/b/1"}
	for _, path := range paths {
		if err := store.Write(ctx, path, []byte("v")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	count, err := store.Count(ctx, "/test/a/")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 records under /test/a/, got %d", count)
	}

	count, err = store.Count(ctx, "/test/")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 4 {
		t.Errorf("Expected 4 records under /test/, got %d", count)
	}

	count, err = store.Count(ctx, "/other/")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 records under /other/, got %d", count)
	}
}

func TestStore_Persistence(t *testing.T) {
	dir, err := os.MkdirTemp("", "badgerdb_persist_test")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	ctx := context.Background()

	store1, err := New(Config{Dir: dir})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := store1.Write(ctx, "/test/a/1", []byte("durable")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := store1.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	store2, err := New(Config{Dir: dir})
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer func() { _ = store2.Close() }()

	value, err := store2.Read(ctx, "/test/a/1")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(value) != "durable" {
		t.Errorf("Expected 'durable', got '%s'", string(value))
	}
}
