package httpserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/todo-app/config"
	"github.com/example/todo-app/modules/ratelimit"
	"github.com/example/todo-app/modules/todo"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

// Module implements the HTTP server module using Fiber framework.
type Module struct {
	app             *fiber.App
	handlers        *Handlers
	cfg             config.HTTPConfig
	todoModule      *todo.Module
	rateLimitModule *ratelimit.Module
	logger          types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module          = (*Module)(nil)
	_ mono.DependentModule = (*Module)(nil)
)

// NewModule creates a new HTTP server module. rateLimitModule may be nil.
func NewModule(
	cfg config.HTTPConfig,
	todoModule *todo.Module,
	rateLimitModule *ratelimit.Module,
	moduleLogger types.Logger,
) *Module {
	return &Module{
		cfg:             cfg,
		todoModule:      todoModule,
		rateLimitModule: rateLimitModule,
		logger:          moduleLogger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "http-server"
}

// Dependencies makes the framework start the store (and limiter) first.
func (m *Module) Dependencies() []string {
	deps := []string{"todo"}
	if m.rateLimitModule != nil {
		deps = append(deps, "rate-limiter")
	}
	return deps
}

// SetDependencyServiceContainer is a no-op: the todo and rate-limiter
// modules are called in-process and expose no request-reply services.
func (m *Module) SetDependencyServiceContainer(_ string, _ mono.ServiceContainer) {}

// Start builds the Fiber app and starts listening.
func (m *Module) Start(_ context.Context) error {
	if err := m.setupApp(); err != nil {
		return err
	}

	// Start server in goroutine with startup error detection
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.cfg.Addr); err != nil {
			errCh <- err
		}
	}()

	// Wait briefly to catch immediate startup errors (port in use, permission denied)
	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("HTTP server started", "addr", m.cfg.Addr)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (m *Module) Stop(ctx context.Context) error {
	if m.app != nil {
		if err := m.app.ShutdownWithContext(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}
	m.logger.Info("HTTP server stopped")
	return nil
}

// setupApp wires handlers, middleware and routes without listening.
func (m *Module) setupApp() error {
	if m.todoModule == nil || m.todoModule.Service() == nil {
		return errors.New("todo module not started")
	}

	var limit fiber.Handler
	if m.rateLimitModule != nil {
		mw := m.rateLimitModule.Middleware()
		if mw == nil {
			return errors.New("rate-limiter module not started")
		}
		limit = mw.IPRateLimit()
	}

	m.handlers = NewHandlers(m.todoModule.Service(), m.logger)

	m.app = fiber.New(fiber.Config{
		AppName:               "Todo App",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
		ReadTimeout:           m.cfg.ReadTimeout,
		WriteTimeout:          m.cfg.WriteTimeout,
		IdleTimeout:           m.cfg.IdleTimeout,
	})

	m.app.Use(recover.New())
	m.app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: m.cfg.CORSAllowedOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	m.registerRoutes(limit)
	return nil
}

// registerRoutes sets up all HTTP routes. limit, when set, guards the todo routes.
func (m *Module) registerRoutes(limit fiber.Handler) {
	api := m.app.Group("/api")

	// Health check (never rate limited)
	api.Get("/health", m.handlers.HealthCheck)

	todos := api.Group("/todos")
	if limit != nil {
		todos.Use(limit)
	}
	todos.Get("/", m.handlers.ListTodos)
	todos.Post("/", m.handlers.CreateTodo)
	todos.Get("/stats", m.handlers.GetStats)
	todos.Put("/:id", m.handlers.UpdateTodo)
	todos.Delete("/:id", m.handlers.DeleteTodo)
}

// errorHandler renders errors that escape the handlers as {"error": message}.
func (m *Module) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	if code >= fiber.StatusInternalServerError {
		m.logger.Error("HTTP error", "code", code, "path", c.Path(), "error", err)
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}
