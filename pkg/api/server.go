// Package api serves posture scores over HTTP and a live websocket stream.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-posture/internal/log"
	"github.com/teslashibe/go-posture/pkg/hub"
	"github.com/teslashibe/go-posture/pkg/monitor"
	"github.com/teslashibe/go-posture/pkg/pose"
	"github.com/teslashibe/go-posture/pkg/settings"
)

// Monitor is the scoring state the API exposes.
type Monitor interface {
	Latest() monitor.Snapshot
	Stats() monitor.Stats
	Process(f pose.Frame) monitor.Result
	Observe(f pose.Frame, frameErr error) monitor.Snapshot
}

// Server is the HTTP API.
type Server struct {
	app      *fiber.App
	addr     string
	monitor  Monitor
	settings *settings.Manager
	scoreHub *hub.Hub

	transport string
	connected func() bool
}

// NewServer wires routes for mon and mgr.
func NewServer(addr string, mon Monitor, mgr *settings.Manager) *Server {
	s := &Server{
		addr:     addr,
		monitor:  mon,
		settings: mgr,
		scoreHub: hub.New("score"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-posture",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/score", s.handleLatest)
	api.Post("/score", s.handleScoreFrame)
	api.Get("/stats", s.handleStats)
	api.Get("/config", s.handleGetConfig)
	api.Put("/config", s.handleUpdateConfig)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/score", websocket.New(s.scoreHub.Serve))

	s.app = app
	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// SetTransport reports the named frame transport's connectivity on
// /api/health. Call it before Start.
func (s *Server) SetTransport(name string, connected func() bool) {
	s.transport = name
	s.connected = connected
}

// Publish broadcasts a snapshot to websocket clients.
// Pass it to Monitor.Subscribe.
func (s *Server) Publish(snap monitor.Snapshot) {
	if err := s.scoreHub.BroadcastJSON(snap); err != nil {
		log.Warn("broadcast snapshot failed", "error", err)
	}
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go s.scoreHub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening", "addr", s.addr)
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if err := s.app.Shutdown(); err != nil {
			return err
		}
		return nil
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := http.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
