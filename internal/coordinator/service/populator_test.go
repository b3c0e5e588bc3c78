package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anthanhphan/go-replica-coordinator/internal/coordinator/domain"
	"github.com/anthanhphan/go-replica-coordinator/internal/coordinator/service/mocks"
	"github.com/anthanhphan/go-replica-coordinator/pkg/resilience"
	"go.uber.org/mock/gomock"
)

type populatorFixture struct {
	populator *populator
	store     *mocks.MockPrimaryStore
	registry  *ConnectionRegistry
	dialer    *mocks.MockPeerDialer
	samples   *domain.SampleBuffer
}

func newPopulatorFixture(t *testing.T, keys []string, sampleRate float64) *populatorFixture {
	t.Helper()
	registry, r, dialer := newTestRegistry(t)
	store := mocks.NewMockPrimaryStore(gomock.NewController(t))
	samples := domain.NewSampleBuffer(8)
	pool := resilience.NewWorkerPool(1, 8)
	t.Cleanup(func() {
		pool.Close()
		pool.Wait()
	})

	pop := newPopulator(store, newReplicaRouter(r, registry), samples, pool,
		keys, time.Hour, 0, sampleRate, time.Second)
	return &populatorFixture{
		populator: pop,
		store:     store,
		registry:  registry,
		dialer:    dialer,
		samples:   samples,
	}
}

func TestPopulator_WritesEveryKeyPerPass(t *testing.T) {
	fx := newPopulatorFixture(t, []string{"/test/a", "/test/b"}, 0)
	fx.store.EXPECT().Push(gomock.Any(), "/test/a", gomock.Any()).Return("/test/a/1", nil)
	fx.store.EXPECT().Push(gomock.Any(), "/test/b", gomock.Any()).Return("/test/b/1", nil)

	fx.populator.populateAll(context.Background())

	stats := fx.populator.statsSnapshot()
	if stats.PrimaryWrites != 2 {
		t.Errorf("PrimaryWrites = %d, want 2", stats.PrimaryWrites)
	}
	// Nobody is connected, so every replica write is skipped
	if stats.ReplicaUnavailable != 2 {
		t.Errorf("ReplicaUnavailable = %d, want 2", stats.ReplicaUnavailable)
	}
	if stats.FailuresByKey["/test/a"] != 1 || stats.FailuresByKey["/test/b"] != 1 {
		t.Errorf("FailuresByKey = %v, want 1 per key", stats.FailuresByKey)
	}
	if fx.samples.Len() != 0 {
		t.Errorf("samples retained = %d, want 0 at rate 0", fx.samples.Len())
	}
}

func TestPopulator_WritesTimestampedRecord(t *testing.T) {
	fx := newPopulatorFixture(t, []string{"/test/a"}, 0)

	var payload []byte
	fx.store.EXPECT().Push(gomock.Any(), "/test/a", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, value []byte) (string, error) {
			payload = value
			return "/test/a/1", nil
		})

	before := time.Now().UnixMilli()
	fx.populator.populateAll(context.Background())

	var record domain.Record
	if err := json.Unmarshal(payload, &record); err != nil {
		t.Fatalf("payload %q is not a record: %v", payload, err)
	}
	if record.Msg == "" {
		t.Error("record msg is empty")
	}
	if record.Ts < before || record.Ts > time.Now().UnixMilli() {
		t.Errorf("record ts = %d, want within the pass", record.Ts)
	}
}

func TestPopulator_RetainsSamplesAtRateOne(t *testing.T) {
	keys := []string{"/test/a", "/test/b", "/test/c"}
	fx := newPopulatorFixture(t, keys, 1.0)

	payloads := make(map[string][]byte)
	for i, key := range keys {
		key := key
		path := key + "/" + string(rune('1'+i))
		fx.store.EXPECT().Push(gomock.Any(), key, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ string, value []byte) (string, error) {
				payloads[key] = value
				return path, nil
			})
	}

	fx.populator.populateAll(context.Background())

	snapshot := fx.samples.Snapshot()
	if len(snapshot) != len(keys) {
		t.Fatalf("samples retained = %d, want %d at rate 1.0", len(snapshot), len(keys))
	}
	for i, sample := range snapshot {
		wantPath := keys[i] + "/" + string(rune('1'+i))
		if sample.Path != wantPath {
			t.Errorf("sample[%d].Path = %q, want %q", i, sample.Path, wantPath)
		}
		var record domain.Record
		if err := json.Unmarshal(payloads[keys[i]], &record); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if sample.Expected != record {
			t.Errorf("sample[%d].Expected = %+v, want the written record %+v", i, sample.Expected, record)
		}
	}
}

func TestPopulator_ReplicaReceivesGeneratedPath(t *testing.T) {
	fx := newPopulatorFixture(t, []string{"/test/a"}, 0)

	conn, _ := newLiveConn(t)
	fx.dialer.EXPECT().Dial(gomock.Any(), "alpha", gomock.Any()).Return(conn, nil)
	if _, err := fx.registry.Connect(context.Background(), "alpha"); err != nil {
		t.Fatalf("Connect(alpha) error = %v", err)
	}

	var (
		mu      sync.Mutex
		primary []byte
		replica []byte
	)
	fx.store.EXPECT().Push(gomock.Any(), "/test/a", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, value []byte) (string, error) {
			mu.Lock()
			primary = value
			mu.Unlock()
			return "/test/a/1", nil
		})
	conn.EXPECT().Write(gomock.Any(), "/test/a/1", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, value []byte) error {
			mu.Lock()
			replica = value
			mu.Unlock()
			return nil
		})

	fx.populator.populateAll(context.Background())
	waitFor(t, time.Second, func() bool {
		return fx.populator.stats.replicaWrites.Load() == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if !bytes.Equal(primary, replica) {
		t.Errorf("replica payload %q differs from primary payload %q", replica, primary)
	}
}

func TestPopulator_PrimaryFailureIsolatedPerKey(t *testing.T) {
	fx := newPopulatorFixture(t, []string{"/test/a", "/test/b"}, 0)

	// With one live node the ring routes every key to it
	conn, _ := newLiveConn(t)
	fx.dialer.EXPECT().Dial(gomock.Any(), "alpha", gomock.Any()).Return(conn, nil)
	if _, err := fx.registry.Connect(context.Background(), "alpha"); err != nil {
		t.Fatalf("Connect(alpha) error = %v", err)
	}

	fx.store.EXPECT().Push(gomock.Any(), "/test/a", gomock.Any()).
		Return("", errors.New("disk full"))
	fx.store.EXPECT().Push(gomock.Any(), "/test/b", gomock.Any()).Return("/test/b/1", nil)
	conn.EXPECT().Write(gomock.Any(), "/test/b/1", gomock.Any()).Return(nil)

	fx.populator.populateAll(context.Background())
	waitFor(t, time.Second, func() bool {
		return fx.populator.stats.replicaWrites.Load() == 1
	})

	stats := fx.populator.statsSnapshot()
	if stats.PrimaryFailures != 1 {
		t.Errorf("PrimaryFailures = %d, want 1", stats.PrimaryFailures)
	}
	if stats.PrimaryWrites != 1 {
		t.Errorf("PrimaryWrites = %d, want 1", stats.PrimaryWrites)
	}
	if stats.FailuresByKey["/test/a"] != 1 {
		t.Errorf("FailuresByKey[/test/a] = %d, want 1", stats.FailuresByKey["/test/a"])
	}
	if stats.FailuresByKey["/test/b"] != 0 {
		t.Errorf("FailuresByKey[/test/b] = %d, want 0", stats.FailuresByKey["/test/b"])
	}
}

func TestPopulator_DefaultKeySet(t *testing.T) {
	pop := newPopulator(nil, nil, nil, nil, nil, 0, -1, -1, 0)

	if len(pop.keys) != 7 {
		t.Fatalf("default key count = %d, want 7", len(pop.keys))
	}
	if pop.keys[0] != "/test/a" || pop.keys[6] != "/test/g" {
		t.Errorf("default keys = %v, want /test/a through /test/g", pop.keys)
	}
	if pop.interval != DefaultPopulateInterval {
		t.Errorf("interval = %v, want %v", pop.interval, DefaultPopulateInterval)
	}
	if pop.sampleRate != DefaultSampleRate {
		t.Errorf("sampleRate = %v, want %v", pop.sampleRate, DefaultSampleRate)
	}
}

func TestPopulator_JitteredDelayStaysInRange(t *testing.T) {
	fx := newPopulatorFixture(t, []string{"/test/a"}, 0)
	fx.populator.interval = 100 * time.Millisecond
	fx.populator.jitter = 0.5

	for i := 0; i < 200; i++ {
		delay := fx.populator.nextDelay()
		if delay < 100*time.Millisecond || delay > 150*time.Millisecond {
			t.Fatalf("nextDelay() = %v, want within [100ms, 150ms]", delay)
		}
	}
}
