package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	httpHandler "github.com/anthanhphan/go-replica-coordinator/internal/coordinator/adapter/inbound/http"
	"github.com/anthanhphan/go-replica-coordinator/internal/coordinator/adapter/outbound/peer"
	"github.com/anthanhphan/go-replica-coordinator/internal/coordinator/config"
	"github.com/anthanhphan/go-replica-coordinator/internal/coordinator/service"
	"github.com/anthanhphan/go-replica-coordinator/internal/store/adapter/inbound/resp"
	"github.com/anthanhphan/go-replica-coordinator/internal/store/adapter/outbound/badgerdb"
	storeservice "github.com/anthanhphan/go-replica-coordinator/internal/store/service"
	"github.com/anthanhphan/go-replica-coordinator/pkg/idgen"
	"github.com/anthanhphan/go-replica-coordinator/pkg/ring"
	"github.com/anthanhphan/gosdk/logger"
)

type App struct {
	cfg         *config.Config
	engine      *badgerdb.Store
	respServer  *resp.Server
	adminServer *httpHandler.Server
	coordinator *service.CoordinatorServiceImpl
}

// New wires one coordinator node. nodeID, when non-empty, overrides the
// configured local identity before validation.
func New(configPath, nodeID string) (*App, error) {
	// 1. Load Config and pin down this node's identity
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if nodeID != "" {
		cfg.Cluster.LocalID = nodeID
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// 2. Initialize Logger
	logger.InitLogger(&cfg.Logger)

	// 3. Open the local record store
	engine, err := badgerdb.New(badgerdb.Config{
		Dir:        filepath.Join(cfg.Store.Dir, cfg.Cluster.Database),
		SyncWrites: cfg.Store.SyncWrites,
		GCInterval: cfg.Store.GCInterval(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}

	// 4. Store service with per-node unique path generation
	idGen, err := idgen.New(cfg.LocalNodeIndex(), idgen.SystemClock{})
	if err != nil {
		_ = engine.Close()
		return nil, fmt.Errorf("failed to init snowflake: %w", err)
	}
	storeSvc := storeservice.NewStoreService(engine, idGen)

	// 5. Peer-facing record server
	handler := resp.NewCommandHandler(storeSvc, cfg.Cluster.AdminSecret, cfg.Cluster.Database, cfg.Server.RateLimit)
	respServer := resp.NewServer(resp.Config{
		Addr:         cfg.ListenAddr(),
		TLSCertFile:  cfg.Server.TLSCertFile,
		TLSKeyFile:   cfg.Server.TLSKeyFile,
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
		IdleTimeout:  cfg.Server.IdleTimeout(),
	}, handler)

	// 6. Coordinator: ring, peer dialer, registry and the three loops
	hashRing := ring.New(ring.DefaultVirtualNodes)
	dialer := peer.NewDialer(peer.Config{
		Secret:            cfg.Cluster.AdminSecret,
		Database:          cfg.Cluster.Database,
		DialTimeout:       cfg.Cluster.DialTimeout(),
		HeartbeatInterval: cfg.Cluster.HeartbeatInterval(),
	})
	coordinator := service.NewCoordinatorService(service.Config{
		NodeID:            cfg.Cluster.LocalID,
		Database:          cfg.Cluster.Database,
		Endpoints:         cfg.PeerEndpoints(),
		ReconcileInterval: cfg.Cluster.ReconcileInterval(),
		PopulateKeys:      cfg.Populator.Keys,
		PopulateInterval:  cfg.Populator.Interval(),
		PopulateJitter:    cfg.Populator.Jitter,
		SampleRate:        cfg.Populator.SampleRate,
		SampleCapacity:    cfg.Populator.SampleCapacity,
		WriteTimeout:      cfg.Populator.WriteTimeout(),
		ReplicaWorkers:    cfg.Populator.Workers,
		ReplicaQueue:      cfg.Populator.QueueSize,
		SampleInterval:    cfg.Sampler.Interval(),
		SampleJitter:      cfg.Sampler.Jitter,
		DriftLogSize:      cfg.Sampler.DriftLogSize,
	}, hashRing, dialer, storeSvc)

	// 7. Admin surface with every collector on one registry
	metricsRegistry := prometheus.NewRegistry()
	engine.RegisterMetrics(metricsRegistry)
	coordinator.RegisterMetrics(metricsRegistry)
	adminServer := httpHandler.NewServer(cfg, coordinator, metricsRegistry)

	return &App{
		cfg:         cfg,
		engine:      engine,
		respServer:  respServer,
		adminServer: adminServer,
		coordinator: coordinator,
	}, nil
}

func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrCh := make(chan error, 2)
	go func() {
		if err := a.respServer.Start(ctx); err != nil {
			serverErrCh <- fmt.Errorf("peer server failed: %w", err)
		}
	}()
	go func() {
		if err := a.adminServer.Start(); err != nil {
			serverErrCh <- fmt.Errorf("admin server failed: %w", err)
		}
	}()

	a.coordinator.Start(ctx)
	logger.Infow("Replica coordinator running",
		"node", a.cfg.Cluster.LocalID,
		"listen", a.cfg.ListenAddr(),
		"admin", a.cfg.Admin.Addr)

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	var runErr error
	select {
	case sig := <-stop:
		logger.Infow("Shutdown signal received", "signal", sig.String())
	case err := <-serverErrCh:
		runErr = err
		logger.Errorw("Server exited unexpectedly", "error", err.Error())
	}

	logger.Info("Shutting down coordinator services")
	cancel()
	a.coordinator.Stop()

	if err := a.adminServer.Stop(context.Background()); err != nil {
		logger.Errorw("Admin shutdown error", "error", err.Error())
		if runErr == nil {
			runErr = err
		}
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := a.respServer.Stop(stopCtx); err != nil {
		logger.Errorw("Peer server shutdown error", "error", err.Error())
		if runErr == nil {
			runErr = err
		}
	}
	if err := a.engine.Close(); err != nil {
		logger.Errorw("Record store close error", "error", err.Error())
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}
