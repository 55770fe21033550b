package todo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/example/todo-app/config"
	domain "github.com/example/todo-app/domain/todo"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS todos (
  id SERIAL PRIMARY KEY,
  title VARCHAR(255) NOT NULL,
  completed BOOLEAN DEFAULT FALSE,
  created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

	listTodosSQL = `SELECT id, title, completed, created_at FROM todos ORDER BY created_at DESC, id DESC`

	insertTodoSQL = `INSERT INTO todos (title) VALUES ($1) RETURNING id, title, completed, created_at`

	updateCompletedSQL = `UPDATE todos SET completed = $1 WHERE id = $2::bigint RETURNING id, title, completed, created_at`

	deleteTodoSQL = `DELETE FROM todos WHERE id = $1::bigint RETURNING id, title, completed, created_at`

	statsSQL = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE completed) AS completed FROM todos`

	pingSQL = `SELECT 1`
)

// PostgresStore runs todo statements over a pgx connection pool.
type PostgresStore struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
	logger         types.Logger
}

var _ Store = (*PostgresStore)(nil)

// ConnString builds the pgx connection string for cfg.
// cfg.URL wins over the discrete host/port/user fields when set.
func ConnString(cfg config.DatabaseConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}

	sslMode := "disable"
	if cfg.SSLRequired() {
		sslMode = "require"
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	} else {
		u.User = url.User(cfg.User)
	}
	return u.String()
}

// PoolConfig builds the pgxpool configuration for cfg.
// Sessions run in UTC so created_at (a TIMESTAMP without zone) reads back as UTC.
func PoolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(ConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MaxConnIdleTime = cfg.IdleTimeout
	poolConfig.ConnConfig.ConnectTimeout = cfg.AcquireTimeout
	poolConfig.ConnConfig.RuntimeParams["timezone"] = "UTC"

	return poolConfig, nil
}

// NewPostgresStore opens the pool and verifies it with a ping.
func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig, logger types.Logger) (*PostgresStore, error) {
	poolConfig, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.AcquireTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Postgres pool opened",
		"host", poolConfig.ConnConfig.Host,
		"database", poolConfig.ConnConfig.Database,
		"maxConns", poolConfig.MaxConns)

	return NewPostgresStoreWithPool(pool, cfg.AcquireTimeout, logger), nil
}

// NewPostgresStoreWithPool wraps an existing pool.
func NewPostgresStoreWithPool(pool *pgxpool.Pool, acquireTimeout time.Duration, logger types.Logger) *PostgresStore {
	return &PostgresStore{
		pool:           pool,
		acquireTimeout: acquireTimeout,
		logger:         logger,
	}
}

// withConn leases one connection for a single statement. The lease wait is
// bounded by the acquire timeout; the statement itself runs detached from
// the caller's cancellation so the connection always comes back clean.
func (s *PostgresStore) withConn(ctx context.Context, fn func(ctx context.Context, conn *pgxpool.Conn) error) error {
	acquireCtx, cancel := context.WithTimeout(ctx, s.acquireTimeout)
	defer cancel()

	conn, err := s.pool.Acquire(acquireCtx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	return fn(context.WithoutCancel(ctx), conn)
}

// Migrate creates the todos table if missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return s.withConn(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		if _, err := conn.Exec(ctx, createTableSQL); err != nil {
			return fmt.Errorf("failed to create todos table: %w", err)
		}
		return nil
	})
}

// List returns all todos ordered newest first.
func (s *PostgresStore) List(ctx context.Context) ([]domain.Todo, error) {
	var todos []domain.Todo
	err := s.withConn(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, listTodosSQL)
		if err != nil {
			return fmt.Errorf("failed to query todos: %w", err)
		}
		todos, err = pgx.CollectRows(rows, pgx.RowToStructByName[domain.Todo])
		if err != nil {
			return fmt.Errorf("failed to scan todos: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []domain.Todo{}
	}
	return todos, nil
}

// Insert stores a new todo.
func (s *PostgresStore) Insert(ctx context.Context, title string) (domain.Todo, error) {
	todo, err := s.queryOne(ctx, insertTodoSQL, title)
	if err != nil {
		return domain.Todo{}, fmt.Errorf("failed to insert todo: %w", err)
	}
	return todo, nil
}

// UpdateCompleted sets the completed flag on one todo.
func (s *PostgresStore) UpdateCompleted(ctx context.Context, id int64, completed bool) (domain.Todo, error) {
	todo, err := s.queryOne(ctx, updateCompletedSQL, completed, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.Todo{}, err
		}
		return domain.Todo{}, fmt.Errorf("failed to update todo %d: %w", id, err)
	}
	return todo, nil
}

// Delete removes one todo.
func (s *PostgresStore) Delete(ctx context.Context, id int64) (domain.Todo, error) {
	todo, err := s.queryOne(ctx, deleteTodoSQL, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.Todo{}, err
		}
		return domain.Todo{}, fmt.Errorf("failed to delete todo %d: %w", id, err)
	}
	return todo, nil
}

// queryOne runs a statement whose RETURNING clause yields at most one todo.
// An empty result maps to ErrNotFound.
func (s *PostgresStore) queryOne(ctx context.Context, sql string, args ...any) (domain.Todo, error) {
	var todo domain.Todo
	err := s.withConn(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		todo, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[domain.Todo])
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	})
	return todo, err
}

// Stats counts total and completed todos.
func (s *PostgresStore) Stats(ctx context.Context) (domain.Stats, error) {
	var total, completed int64
	err := s.withConn(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		if err := conn.QueryRow(ctx, statsSQL).Scan(&total, &completed); err != nil {
			return fmt.Errorf("failed to count todos: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.NewStats(total, completed), nil
}

// Ping runs SELECT 1 through the pool.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.withConn(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		var one int
		return conn.QueryRow(ctx, pingSQL).Scan(&one)
	})
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Driver returns "postgres".
func (s *PostgresStore) Driver() string {
	return config.DriverPostgres
}
