// Package httpapi exposes the platform over HTTP and websockets: auth,
// profile directory, thread resolution, message streams, conversation list
// and uploads.
package httpapi

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/huddlehq/huddle/internal/auth"
	"github.com/huddlehq/huddle/internal/blob"
	"github.com/huddlehq/huddle/internal/directory"
	"github.com/huddlehq/huddle/internal/messaging"
	"github.com/huddlehq/huddle/internal/realtime"
	"github.com/huddlehq/huddle/internal/status"
	"github.com/huddlehq/huddle/internal/store"
)

// Deps carries everything the HTTP layer serves. Feed may be nil when the
// daemon runs degraded; websocket routes then answer 503 and clients poll.
type Deps struct {
	Logger     *zap.Logger
	DB         *store.DB
	Auth       *auth.Service
	Directory  *directory.Directory
	Resolver   *messaging.Resolver
	ReadState  *messaging.ReadState
	Stream     *messaging.Stream
	Aggregator *messaging.Aggregator
	Blobs      *blob.Store
	Feed       *realtime.Feed
	Machine    *status.Machine
}

// Server is the fiber HTTP server for the daemon.
type Server struct {
	app    *fiber.App
	addr   string
	logger *zap.Logger

	db         *store.DB
	auth       *auth.Service
	dir        *directory.Directory
	resolver   *messaging.Resolver
	readState  *messaging.ReadState
	stream     *messaging.Stream
	aggregator *messaging.Aggregator
	blobs      *blob.Store
	feed       *realtime.Feed
	machine    *status.Machine
}

// NewServer builds the server and wires all routes.
func NewServer(addr string, d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	s := &Server{
		addr:       addr,
		logger:     d.Logger,
		db:         d.DB,
		auth:       d.Auth,
		dir:        d.Directory,
		resolver:   d.Resolver,
		readState:  d.ReadState,
		stream:     d.Stream,
		aggregator: d.Aggregator,
		blobs:      d.Blobs,
		feed:       d.Feed,
		machine:    d.Machine,
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
	})
	s.app.Use(fiberrecover.New())
	s.app.Use(requestLogger(d.Logger))
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.app.Group("/api")
	api.Post("/register", s.handleRegister)
	api.Post("/login", s.handleLogin)
	api.Get("/health", s.handleHealth)

	authed := api.Group("", s.requireAuth)
	authed.Get("/profiles", s.handleSearchProfiles)
	authed.Get("/profiles/:id", s.handleGetProfile)
	authed.Put("/profiles/me", s.handleUpdateProfile)
	authed.Post("/threads/resolve", s.handleResolveThread)
	authed.Get("/conversations", s.handleListConversations)
	authed.Get("/threads/:id/messages", s.handleListMessages)
	authed.Post("/threads/:id/messages", s.handleSendMessage)
	authed.Post("/threads/:id/read", s.handleMarkRead)
	authed.Post("/uploads", s.handleUpload)

	if s.blobs != nil {
		s.app.Static("/uploads", s.blobs.Root())
	}

	s.socketRoutes()
}

// Start listens until Stop is called. Blocks.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.addr))
	return s.app.Listen(s.addr)
}

// Stop drains connections and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func requestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Debug("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("took", time.Since(start)))
		return err
	}
}
