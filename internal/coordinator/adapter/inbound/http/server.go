package http_handler

import (
	"context"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anthanhphan/go-replica-coordinator/internal/coordinator/config"
	"github.com/anthanhphan/go-replica-coordinator/internal/coordinator/port"
)

// Server is the local admin surface: cluster state, drift evidence and
// metrics. It is meant for operators and scrapers, not for peers.
type Server struct {
	app     *fiber.App
	cfg     *config.Config
	service port.CoordinatorService
}

func NewServer(cfg *config.Config, service port.CoordinatorService, metrics *prometheus.Registry) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	s := &Server{
		app:     app,
		cfg:     cfg,
		service: service,
	}

	// Routes
	s.registerRoutes(metrics)

	return s
}

func (s *Server) registerRoutes(metrics *prometheus.Registry) {
	s.app.Get("/v1/status", s.handleStatus)
	s.app.Get("/v1/cluster/nodes", s.handleNodes)
	s.app.Get("/v1/cluster/route", s.handleRoute)
	s.app.Get("/v1/drift", s.handleDrift)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics, promhttp.HandlerOpts{})))
}

func (s *Server) Start() error {
	return s.app.Listen(s.cfg.Admin.Addr)
}

func (s *Server) Stop(ctx context.Context) error {
	return s.app.Shutdown()
}

func (s *Server) sendJSONError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.service.Status(c.Context()))
}

func (s *Server) handleNodes(c *fiber.Ctx) error {
	status := s.service.Status(c.Context())
	return c.JSON(fiber.Map{
		"ring_members": status.RingMembers,
		"nodes":        status.Nodes,
	})
}

func (s *Server) handleRoute(c *fiber.Ctx) error {
	key := c.Query("key")
	if key == "" {
		return s.sendJSONError(c, fiber.StatusBadRequest, "Missing 'key' query parameter")
	}

	owner, ok := s.service.Owner(key)
	if !ok {
		return s.sendJSONError(c, fiber.StatusNotFound, "No replica available: ring is empty")
	}
	return c.JSON(fiber.Map{
		"key":   key,
		"owner": owner,
	})
}

func (s *Server) handleDrift(c *fiber.Ctx) error {
	events := s.service.RecentDrift()
	return c.JSON(fiber.Map{
		"count":  len(events),
		"events": events,
	})
}
