// Package api exposes the engine over HTTP with Fiber. Commands arrive in the
// externally tagged wire form, are validated against the execute schema and
// run with the sender taken from a request header and the time from a Clock.
package api

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/command"
)

// SenderHeader carries the authenticated caller. The host in front of the
// server is responsible for authenticating it.
const SenderHeader = "X-Sender"

// DefaultBasePath prefixes every route except /health.
const DefaultBasePath = "/vesting"

// Clock returns the current block time in seconds.
type Clock func() uint64

// SystemClock reads the wall clock.
func SystemClock() uint64 {
	return uint64(time.Now().Unix()) //nolint:gosec // post-1970
}

// Server serves one engine.
type Server struct {
	engine   *vesting.Engine
	schema   *jsonschema.Schema
	clock    Clock
	logger   *slog.Logger
	basePath string
	app      *fiber.App
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the time source commands execute at.
func WithClock(c Clock) Option {
	return func(s *Server) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithBasePath sets the route prefix.
func WithBasePath(p string) Option {
	return func(s *Server) { s.basePath = strings.TrimRight(p, "/") }
}

// New builds the Fiber app for engine.
func New(engine *vesting.Engine, opts ...Option) (*Server, error) {
	schema, err := command.CompileSchema()
	if err != nil {
		return nil, err
	}

	s := &Server{
		engine:   engine,
		schema:   schema,
		clock:    SystemClock,
		logger:   slog.Default(),
		basePath: DefaultBasePath,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		ErrorHandler:          s.handleError,
		DisableStartupMessage: true,
	})
	s.routes()
	return s, nil
}

// App returns the underlying Fiber app, for mounting or testing.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("vesting api listening", "addr", addr, "base_path", s.basePath)
	return s.app.Listen(addr)
}

// Shutdown stops the listener.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) routes() {
	s.app.Get("/health", s.health)

	g := s.app.Group(s.basePath)
	g.Get("/schema", s.getSchema)
	g.Post("/instantiate", s.instantiate)
	g.Post("/execute", s.execute)

	g.Get("/config", s.getConfig)
	g.Get("/price", s.getPrice)
	g.Get("/vesting_parameters", s.getVestingParameters)
	g.Get("/total", s.getTotal)
	g.Get("/users", s.listUsers)
	g.Get("/users/:wallet", s.getUser)
	g.Get("/users/:wallet/pending", s.getPending)
	g.Get("/balance/:wallet", s.getBalance)
}
