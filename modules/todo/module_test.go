package todo

import (
	"context"
	"errors"
	"testing"

	"github.com/example/todo-app/config"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any)         {}
func (m *mockLogger) Info(_ string, _ ...any)          {}
func (m *mockLogger) Warn(_ string, _ ...any)          {}
func (m *mockLogger) Error(_ string, _ ...any)         {}
func (m *mockLogger) With(_ ...any) types.Logger       { return m }
func (m *mockLogger) WithError(_ error) types.Logger   { return m }
func (m *mockLogger) WithModule(_ string) types.Logger { return m }

func TestModule_Name(t *testing.T) {
	m := NewModule(config.DatabaseConfig{}, &mockLogger{})
	assert.Equal(t, "todo", m.Name())
}

func TestModule_StartMigratesOnce(t *testing.T) {
	store := newMockStore()
	m := NewModuleWithStore(store, &mockLogger{})

	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, 1, store.migrated)
	require.NotNil(t, m.Service())

	_, err := m.Service().Create(context.Background(), CreateTodoRequest{Title: strPtr("x")})
	require.NoError(t, err)
	_, err = m.Service().List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.migrated, "requests must not re-run the migration")

	require.NoError(t, m.Stop(context.Background()))
	assert.True(t, store.closed)
}

func TestModule_StartFailsOnMigrationError(t *testing.T) {
	store := newMockStore()
	store.migrateErr = errors.New("permission denied")
	m := NewModuleWithStore(store, &mockLogger{})

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.True(t, store.closed)
	assert.Nil(t, m.Service())

	assert.False(t, m.Health(context.Background()).Healthy)
	require.NoError(t, m.Stop(context.Background()))
	assert.Equal(t, 1, store.closeCalls, "a failed start must not leave the closed store behind")
}

func TestModule_StartUnknownDriver(t *testing.T) {
	m := NewModule(config.DatabaseConfig{Driver: "mysql"}, &mockLogger{})
	err := m.Start(context.Background())
	require.ErrorIs(t, err, config.ErrUnknownDriver)
}

func TestModule_StartSQLite(t *testing.T) {
	m := NewModule(config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: ":memory:",
	}, &mockLogger{})
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { _ = m.Stop(context.Background()) })

	status := m.Health(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, config.DriverSQLite, status.Details["driver"])
}

func TestModule_Health(t *testing.T) {
	t.Run("not started", func(t *testing.T) {
		m := NewModule(config.DatabaseConfig{}, &mockLogger{})
		assert.False(t, m.Health(context.Background()).Healthy)
	})

	t.Run("ping fails", func(t *testing.T) {
		store := newMockStore()
		store.pingErr = errors.New("connection refused")
		m := NewModuleWithStore(store, &mockLogger{})

		status := m.Health(context.Background())
		assert.False(t, status.Healthy)
		assert.Contains(t, status.Message, "connection refused")
	})

	t.Run("healthy", func(t *testing.T) {
		m := NewModuleWithStore(newMockStore(), &mockLogger{})
		status := m.Health(context.Background())
		assert.True(t, status.Healthy)
		assert.Equal(t, "mock", status.Details["driver"])
	})
}
