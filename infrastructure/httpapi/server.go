package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	apprender "github.com/ROJSUWAN/n8n-video-renderer/application/render"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/render"
)

// AppName is reported by the index and health endpoints
const AppName = "n8n-video-renderer-v2"

// DefaultBodyLimit fits a dozen full-resolution base64 images
const DefaultBodyLimit = 64 << 20

const idleTimeout = 60 * time.Second

// Submitter accepts render requests
type Submitter interface {
	Submit(ctx context.Context, req *render.Request) (*apprender.Accepted, error)
	RenderNow(ctx context.Context, req *render.Request, keepBytes bool) (*render.Job, *apprender.Result, error)
}

// Check reports whether one dependency is usable
type Check func(ctx context.Context) error

// NamedCheck is a health check with a stable name in the response
type NamedCheck struct {
	Name  string
	Check Check
}

// Config holds listener settings that shape the fiber app
type Config struct {
	BodyLimit      int
	TrustedProxies []string
	HealthTimeout  time.Duration
}

// Server is the HTTP API in front of the render pipeline
type Server struct {
	app       *fiber.App
	submitter Submitter
	jobs      render.JobStore
	checks    []NamedCheck
	cfg       Config
	logger    zerolog.Logger
}

// New builds the fiber app and registers all routes
func New(cfg Config, submitter Submitter, store render.JobStore, checks []NamedCheck, logger zerolog.Logger) *Server {
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = DefaultBodyLimit
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = 3 * time.Second
	}

	s := &Server{
		submitter: submitter,
		jobs:      store,
		checks:    checks,
		cfg:       cfg,
		logger:    logger,
	}

	fcfg := fiber.Config{
		AppName:               AppName,
		BodyLimit:             cfg.BodyLimit,
		IdleTimeout:           idleTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
		ProxyHeader:           fiber.HeaderXForwardedFor,
		EnableIPValidation:    true,
	}
	if proxies := trustedProxies(cfg.TrustedProxies); proxies != nil {
		// Without the check fiber trusts the header from any peer, which is
		// what "*" means
		fcfg.EnableTrustedProxyCheck = true
		fcfg.TrustedProxies = proxies
	}

	s.app = fiber.New(fcfg)
	s.app.Use(recover.New(recover.Config{EnableStackTrace: true, StackTraceHandler: s.logPanic}))
	s.app.Use(accessLog(logger))

	s.app.Get("/", s.index)
	s.app.Get("/health", s.health)
	s.app.Post("/render", s.postRender)
	s.app.Get("/render/:id", s.getRender)

	return s
}

// App exposes the fiber app, mainly for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving addr until Shutdown is called
func (s *Server) Listen(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("http server listening")
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// trustedProxies returns nil when every source is trusted
func trustedProxies(list []string) []string {
	var out []string
	for _, p := range list {
		if p == "*" {
			return nil
		}
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (s *Server) logPanic(c *fiber.Ctx, e interface{}) {
	s.logger.Error().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Interface("panic", e).
		Msg("panic in handler")
}

// errorHandler renders every error as {"detail": "..."}
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	return detail(c, code, msg)
}

func detail(c *fiber.Ctx, code int, msg string) error {
	return c.Status(code).JSON(fiber.Map{"detail": msg})
}
