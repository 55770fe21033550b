package todo

import (
	"context"
	"fmt"
	"time"

	"github.com/example/todo-app/config"
	domain "github.com/example/todo-app/domain/todo"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// todoRecord is the GORM model for the todos table.
type todoRecord struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Title     string    `gorm:"type:varchar(255);not null"`
	Completed bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null;index"`
}

// TableName pins the table name shared with the Postgres schema.
func (todoRecord) TableName() string {
	return "todos"
}

func (r todoRecord) toDomain() domain.Todo {
	return domain.Todo{
		ID:        r.ID,
		Title:     r.Title,
		Completed: r.Completed,
		CreatedAt: r.CreatedAt,
	}
}

// SQLiteStore runs todo statements through GORM on SQLite.
type SQLiteStore struct {
	db     *gorm.DB
	logger types.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens the database file at cfg.SQLitePath.
func NewSQLiteStore(cfg config.DatabaseConfig, moduleLogger types.Logger) (*SQLiteStore, error) {
	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// SQLite serializes writers; one connection also keeps :memory: databases shared.
	// The connection never expires: closing it would drop an in-memory database.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxIdleTime(0)
	sqlDB.SetConnMaxLifetime(0)

	moduleLogger.Info("SQLite database opened", "path", cfg.SQLitePath)

	return NewSQLiteStoreWithDB(db, moduleLogger), nil
}

// NewSQLiteStoreWithDB wraps an open GORM handle.
func NewSQLiteStoreWithDB(db *gorm.DB, moduleLogger types.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:     db,
		logger: moduleLogger,
	}
}

// Migrate creates the todos table if missing.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&todoRecord{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// List returns all todos ordered newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Todo, error) {
	var records []todoRecord
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}

	todos := make([]domain.Todo, len(records))
	for i, r := range records {
		todos[i] = r.toDomain()
	}
	return todos, nil
}

// Insert stores a new todo.
func (s *SQLiteStore) Insert(ctx context.Context, title string) (domain.Todo, error) {
	record := todoRecord{
		Title:     title,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return domain.Todo{}, fmt.Errorf("failed to insert todo: %w", err)
	}
	return record.toDomain(), nil
}

// UpdateCompleted sets the completed flag on one todo.
func (s *SQLiteStore) UpdateCompleted(ctx context.Context, id int64, completed bool) (domain.Todo, error) {
	var records []todoRecord
	result := s.db.WithContext(ctx).
		Model(&records).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Update("completed", completed)
	if err := result.Error; err != nil {
		return domain.Todo{}, fmt.Errorf("failed to update todo %d: %w", id, err)
	}
	if result.RowsAffected == 0 || len(records) == 0 {
		return domain.Todo{}, ErrNotFound
	}
	return records[0].toDomain(), nil
}

// Delete removes one todo.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) (domain.Todo, error) {
	var records []todoRecord
	result := s.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Delete(&records)
	if err := result.Error; err != nil {
		return domain.Todo{}, fmt.Errorf("failed to delete todo %d: %w", id, err)
	}
	if result.RowsAffected == 0 || len(records) == 0 {
		return domain.Todo{}, ErrNotFound
	}
	return records[0].toDomain(), nil
}

// Stats counts total and completed todos.
func (s *SQLiteStore) Stats(ctx context.Context) (domain.Stats, error) {
	var row struct {
		Total     int64
		Completed int64
	}
	if err := s.db.WithContext(ctx).
		Model(&todoRecord{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN completed THEN 1 ELSE 0 END), 0) AS completed").
		Scan(&row).Error; err != nil {
		return domain.Stats{}, fmt.Errorf("failed to count todos: %w", err)
	}
	return domain.NewStats(row.Total, row.Completed), nil
}

// Ping runs SELECT 1.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	var one int
	return s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error
}

// Close closes the underlying sql.DB.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Driver returns "sqlite".
func (s *SQLiteStore) Driver() string {
	return config.DriverSQLite
}
