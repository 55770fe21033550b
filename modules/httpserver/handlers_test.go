package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/todo-app/config"
	domain "github.com/example/todo-app/domain/todo"
	"github.com/example/todo-app/modules/todo"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
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

// setupTestServer starts a todo module on in-memory SQLite and returns the
// HTTP module wired to it, without listening on a port.
func setupTestServer(t *testing.T) (*Module, *todo.Module) {
	t.Helper()

	todoModule := todo.NewModule(config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: ":memory:",
	}, &mockLogger{})
	require.NoError(t, todoModule.Start(context.Background()))
	t.Cleanup(func() { _ = todoModule.Stop(context.Background()) })

	m := NewModule(config.HTTPConfig{
		Addr:               ":0",
		CORSAllowedOrigins: "http://localhost:3000",
	}, todoModule, nil, &mockLogger{})
	require.NoError(t, m.setupApp())

	return m, todoModule
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeJSON[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), "body: %s", data)
	return v
}

func createTodo(t *testing.T, app *fiber.App, title string) domain.Todo {
	t.Helper()
	resp, body := doRequest(t, app, fiber.MethodPost, "/api/todos", fmt.Sprintf(`{"title":%q}`, title))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, "body: %s", body)
	return decodeJSON[domain.Todo](t, body)
}

func listTodos(t *testing.T, app *fiber.App) []domain.Todo {
	t.Helper()
	resp, body := doRequest(t, app, fiber.MethodGet, "/api/todos", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, "body: %s", body)
	return decodeJSON[[]domain.Todo](t, body)
}

func TestHandlers_Lifecycle(t *testing.T) {
	m, _ := setupTestServer(t)
	start := time.Now().Add(-time.Second)

	created := createTodo(t, m.app, "  Buy milk  ")
	assert.Equal(t, "Buy milk", created.Title)
	assert.False(t, created.Completed)
	assert.Positive(t, created.ID)
	assert.False(t, created.CreatedAt.Before(start))

	path := fmt.Sprintf("/api/todos/%d", created.ID)

	resp, body := doRequest(t, m.app, fiber.MethodPut, path, `{"completed":true}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, "body: %s", body)
	updated := decodeJSON[domain.Todo](t, body)
	assert.True(t, updated.Completed)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.Title, updated.Title)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))

	resp, body = doRequest(t, m.app, fiber.MethodDelete, path, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Todo deleted successfully"}`, string(body))

	for _, item := range listTodos(t, m.app) {
		assert.NotEqual(t, created.ID, item.ID)
	}

	resp, _ = doRequest(t, m.app, fiber.MethodDelete, path, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandlers_ListTodos(t *testing.T) {
	m, _ := setupTestServer(t)

	resp, body := doRequest(t, m.app, fiber.MethodGet, "/api/todos", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))

	var ids []int64
	for i := 0; i < 5; i++ {
		ids = append(ids, createTodo(t, m.app, fmt.Sprintf("todo %d", i)).ID)
	}

	todos := listTodos(t, m.app)
	require.Len(t, todos, 5)
	for i, item := range todos {
		assert.Equal(t, ids[len(ids)-1-i], item.ID)
		if i > 0 {
			assert.False(t, item.CreatedAt.After(todos[i-1].CreatedAt))
		}
	}
}

func TestHandlers_CreateTodoValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"empty title", `{"title":""}`, fiber.StatusBadRequest, "Title is required"},
		{"whitespace title", `{"title":"   "}`, fiber.StatusBadRequest, "Title is required"},
		{"missing title", `{}`, fiber.StatusBadRequest, "Title is required"},
		{"null title", `{"title":null}`, fiber.StatusBadRequest, "Title is required"},
		{"empty body", ``, fiber.StatusBadRequest, "Title is required"},
		{"number title", `{"title":42}`, fiber.StatusBadRequest, "Title is required"},
		{"too long", fmt.Sprintf(`{"title":%q}`, strings.Repeat("x", 256)), fiber.StatusBadRequest, "Title must be at most 255 characters"},
		{"malformed json", `{"title":`, fiber.StatusBadRequest, "Invalid request body"},
		{"not an object", `"Buy milk"`, fiber.StatusBadRequest, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := setupTestServer(t)

			resp, body := doRequest(t, m.app, fiber.MethodPost, "/api/todos", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.message, decodeJSON[ErrorResponse](t, body).Error)

			assert.Empty(t, listTodos(t, m.app), "nothing should be persisted")
		})
	}
}

func TestHandlers_CreateTodoWithoutContentType(t *testing.T) {
	m, _ := setupTestServer(t)

	req := httptest.NewRequest(fiber.MethodPost, "/api/todos", strings.NewReader(`{"title":"plain"}`))
	resp, err := m.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestHandlers_UpdateTodoValidation(t *testing.T) {
	m, _ := setupTestServer(t)
	created := createTodo(t, m.app, "Buy milk")
	path := fmt.Sprintf("/api/todos/%d", created.ID)

	tests := []struct {
		name    string
		path    string
		body    string
		status  int
		message string
	}{
		{"non-integer id", "/api/todos/abc", `{"completed":true}`, fiber.StatusBadRequest, "Invalid todo ID"},
		{"decimal id", "/api/todos/1.5", `{"completed":true}`, fiber.StatusBadRequest, "Invalid todo ID"},
		{"trailing junk id", "/api/todos/12abc", `{"completed":true}`, fiber.StatusBadRequest, "Invalid todo ID"},
		{"missing completed", path, `{}`, fiber.StatusBadRequest, "Completed must be a boolean"},
		{"string completed", path, `{"completed":"yes"}`, fiber.StatusBadRequest, "Completed must be a boolean"},
		{"malformed json", path, `{"completed":`, fiber.StatusBadRequest, "Invalid request body"},
		{"unknown id", "/api/todos/999999", `{"completed":true}`, fiber.StatusNotFound, "Todo not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doRequest(t, m.app, fiber.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.message, decodeJSON[ErrorResponse](t, body).Error)
		})
	}

	todos := listTodos(t, m.app)
	require.Len(t, todos, 1)
	assert.False(t, todos[0].Completed, "failed updates must not mutate")
}

func TestHandlers_UpdateTodoOnlyTouchesTarget(t *testing.T) {
	m, _ := setupTestServer(t)
	target := createTodo(t, m.app, "target")
	other := createTodo(t, m.app, "other")

	resp, _ := doRequest(t, m.app, fiber.MethodPut, fmt.Sprintf("/api/todos/%d", target.ID), `{"completed":true}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body := doRequest(t, m.app, fiber.MethodPut, fmt.Sprintf("/api/todos/%d", target.ID), `{"completed":false}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.False(t, decodeJSON[domain.Todo](t, body).Completed)

	for _, item := range listTodos(t, m.app) {
		if item.ID == other.ID {
			assert.False(t, item.Completed)
			assert.Equal(t, "other", item.Title)
		}
	}
}

func TestHandlers_DeleteTodo(t *testing.T) {
	m, _ := setupTestServer(t)
	keep := createTodo(t, m.app, "keep")
	drop := createTodo(t, m.app, "drop")

	resp, body := doRequest(t, m.app, fiber.MethodDelete, "/api/todos/abc", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid todo ID", decodeJSON[ErrorResponse](t, body).Error)

	resp, body = doRequest(t, m.app, fiber.MethodDelete, "/api/todos/999999", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Todo not found", decodeJSON[ErrorResponse](t, body).Error)

	resp, _ = doRequest(t, m.app, fiber.MethodDelete, fmt.Sprintf("/api/todos/%d", drop.ID), "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	todos := listTodos(t, m.app)
	require.Len(t, todos, 1)
	assert.Equal(t, keep.ID, todos[0].ID)
}

func TestHandlers_GetStats(t *testing.T) {
	m, _ := setupTestServer(t)

	resp, body := doRequest(t, m.app, fiber.MethodGet, "/api/todos/stats", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"total":0,"completed":0,"pending":0,"completion_rate":0}`, string(body))

	a := createTodo(t, m.app, "a")
	createTodo(t, m.app, "b")
	createTodo(t, m.app, "c")
	resp, _ = doRequest(t, m.app, fiber.MethodPut, fmt.Sprintf("/api/todos/%d", a.ID), `{"completed":true}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = doRequest(t, m.app, fiber.MethodGet, "/api/todos/stats", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"total":3,"completed":1,"pending":2,"completion_rate":33}`, string(body))
}

func TestHandlers_HealthCheck(t *testing.T) {
	m, _ := setupTestServer(t)

	resp, body := doRequest(t, m.app, fiber.MethodGet, "/api/health", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	health := decodeJSON[HealthResponse](t, body)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "connected", health.Database)
	assert.Empty(t, health.Error)
	_, err := time.Parse(time.RFC3339, health.Timestamp)
	assert.NoError(t, err)
}

func TestHandlers_StorageFailures(t *testing.T) {
	m, todoModule := setupTestServer(t)
	created := createTodo(t, m.app, "Buy milk")

	// Closing the store makes every statement fail.
	require.NoError(t, todoModule.Stop(context.Background()))

	tests := []struct {
		name    string
		method  string
		path    string
		body    string
		message string
	}{
		{"list", fiber.MethodGet, "/api/todos", "", "Failed to fetch todos"},
		{"create", fiber.MethodPost, "/api/todos", `{"title":"x"}`, "Failed to create todo"},
		{"update", fiber.MethodPut, fmt.Sprintf("/api/todos/%d", created.ID), `{"completed":true}`, "Failed to update todo"},
		{"delete", fiber.MethodDelete, fmt.Sprintf("/api/todos/%d", created.ID), "", "Failed to delete todo"},
		{"stats", fiber.MethodGet, "/api/todos/stats", "", "Failed to fetch todo stats"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doRequest(t, m.app, tt.method, tt.path, tt.body)
			assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
			assert.Equal(t, tt.message, decodeJSON[ErrorResponse](t, body).Error)
		})
	}

	t.Run("health", func(t *testing.T) {
		resp, body := doRequest(t, m.app, fiber.MethodGet, "/api/health", "")
		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

		health := decodeJSON[HealthResponse](t, body)
		assert.Equal(t, "unhealthy", health.Status)
		assert.Equal(t, "disconnected", health.Database)
		assert.NotEmpty(t, health.Error)
		assert.NotEmpty(t, health.Timestamp)
	})
}

func TestHandlers_UnknownRoute(t *testing.T) {
	m, _ := setupTestServer(t)

	resp, body := doRequest(t, m.app, fiber.MethodGet, "/api/nope", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, decodeJSON[ErrorResponse](t, body).Error)
}
