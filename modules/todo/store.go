package todo

import (
	"context"
	"fmt"

	"github.com/example/todo-app/config"
	domain "github.com/example/todo-app/domain/todo"
	"github.com/go-monolith/mono/pkg/types"
)

// Store is the todo query layer. Every method runs exactly one statement.
type Store interface {
	// Migrate creates the todos table if it does not exist.
	Migrate(ctx context.Context) error
	// List returns all todos, newest first.
	List(ctx context.Context) ([]domain.Todo, error)
	// Insert stores a todo with the given title and returns the stored row.
	Insert(ctx context.Context, title string) (domain.Todo, error)
	// UpdateCompleted sets the completed flag and returns the updated row,
	// or ErrNotFound when no row has that id.
	UpdateCompleted(ctx context.Context, id int64, completed bool) (domain.Todo, error)
	// Delete removes a todo and returns the deleted row,
	// or ErrNotFound when no row has that id.
	Delete(ctx context.Context, id int64) (domain.Todo, error)
	// Stats returns aggregate completion counts.
	Stats(ctx context.Context) (domain.Stats, error)
	// Ping runs a trivial query to check connectivity.
	Ping(ctx context.Context) error
	// Close releases all connections.
	Close() error
	// Driver names the backend for health details.
	Driver() string
}

// OpenStore connects to the backend selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, logger types.Logger) (Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return NewPostgresStore(ctx, cfg, logger)
	case config.DriverSQLite:
		return NewSQLiteStore(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, cfg.Driver)
	}
}
