package todo

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/todo-app/config"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Module owns the todo store lifecycle: it opens the store, runs the schema
// migration once and closes the store on shutdown.
type Module struct {
	cfg     config.DatabaseConfig
	store   Store
	service TodoService
	logger  types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a todo module for the configured database.
func NewModule(cfg config.DatabaseConfig, logger types.Logger) *Module {
	return &Module{
		cfg:    cfg,
		logger: logger,
	}
}

// NewModuleWithStore creates a todo module around an already open store.
// Start still runs the migration.
func NewModuleWithStore(store Store, logger types.Logger) *Module {
	return &Module{
		store:  store,
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "todo"
}

// Start opens the store and ensures the todos table exists before any
// request is served.
func (m *Module) Start(ctx context.Context) error {
	if m.store == nil {
		store, err := OpenStore(ctx, m.cfg, m.logger)
		if err != nil {
			return fmt.Errorf("failed to open todo store: %w", err)
		}
		m.store = store
	}

	if err := m.store.Migrate(ctx); err != nil {
		closeErr := m.store.Close()
		m.store = nil
		return errors.Join(err, closeErr)
	}
	m.logger.Info("Schema ready", "driver", m.store.Driver())

	m.service = NewTodoService(m.store)
	m.logger.Info("Todo module started")
	return nil
}

// Stop closes the store.
func (m *Module) Stop(_ context.Context) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.Close(); err != nil {
		return fmt.Errorf("failed to close todo store: %w", err)
	}
	m.logger.Info("Todo store closed")
	return nil
}

// Health pings the store.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.store == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "store not initialized",
		}
	}

	if err := m.store.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": m.store.Driver(),
		},
	}
}

// Service returns the todo service. It is nil until Start succeeds.
func (m *Module) Service() TodoService {
	return m.service
}
