package httpserver

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/example/todo-app/modules/todo"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
)

// timestampLayout is ISO 8601 in UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Handlers contains HTTP request handlers for todo operations.
type Handlers struct {
	service todo.TodoService
	logger  types.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(service todo.TodoService, logger types.Logger) *Handlers {
	return &Handlers{
		service: service,
		logger:  logger,
	}
}

// HealthCheck reports database connectivity (GET /api/health).
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	now := time.Now().UTC().Format(timestampLayout)

	if err := h.service.Ping(c.UserContext()); err != nil {
		h.logger.Error("Health check failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(HealthResponse{
			Status:    "unhealthy",
			Database:  "disconnected",
			Timestamp: now,
			Error:     err.Error(),
		})
	}

	return c.JSON(HealthResponse{
		Status:    "healthy",
		Database:  "connected",
		Timestamp: now,
	})
}

// ListTodos returns every todo, newest first (GET /api/todos).
func (h *Handlers) ListTodos(c *fiber.Ctx) error {
	todos, err := h.service.List(c.UserContext())
	if err != nil {
		h.logger.Error("Failed to fetch todos", "error", err)
		return sendError(c, fiber.StatusInternalServerError, "Failed to fetch todos")
	}
	return c.JSON(todos)
}

// CreateTodo handles POST /api/todos.
func (h *Handlers) CreateTodo(c *fiber.Ctx) error {
	var req todo.CreateTodoRequest
	if err := decodeBody(c, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "title" {
			return sendError(c, fiber.StatusBadRequest, "Title is required")
		}
		return sendError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	created, err := h.service.Create(c.UserContext(), req)
	if err != nil {
		switch {
		case errors.Is(err, todo.ErrTitleRequired):
			return sendError(c, fiber.StatusBadRequest, "Title is required")
		case errors.Is(err, todo.ErrTitleTooLong):
			return sendError(c, fiber.StatusBadRequest, "Title must be at most 255 characters")
		}
		h.logger.Error("Failed to create todo", "error", err)
		return sendError(c, fiber.StatusInternalServerError, "Failed to create todo")
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// UpdateTodo sets the completed flag (PUT /api/todos/:id).
func (h *Handlers) UpdateTodo(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return sendError(c, fiber.StatusBadRequest, "Invalid todo ID")
	}

	var req todo.UpdateTodoRequest
	if err := decodeBody(c, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "completed" {
			return sendError(c, fiber.StatusBadRequest, "Completed must be a boolean")
		}
		return sendError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	updated, err := h.service.SetCompleted(c.UserContext(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, todo.ErrCompletedRequired):
			return sendError(c, fiber.StatusBadRequest, "Completed must be a boolean")
		case errors.Is(err, todo.ErrNotFound):
			return sendError(c, fiber.StatusNotFound, "Todo not found")
		}
		h.logger.Error("Failed to update todo", "id", id, "error", err)
		return sendError(c, fiber.StatusInternalServerError, "Failed to update todo")
	}

	return c.JSON(updated)
}

// DeleteTodo handles DELETE /api/todos/:id.
func (h *Handlers) DeleteTodo(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return sendError(c, fiber.StatusBadRequest, "Invalid todo ID")
	}

	if _, err := h.service.Delete(c.UserContext(), id); err != nil {
		if errors.Is(err, todo.ErrNotFound) {
			return sendError(c, fiber.StatusNotFound, "Todo not found")
		}
		h.logger.Error("Failed to delete todo", "id", id, "error", err)
		return sendError(c, fiber.StatusInternalServerError, "Failed to delete todo")
	}

	return c.JSON(todo.DeleteTodoResponse{
		Message: "Todo deleted successfully",
	})
}

// GetStats returns completion counts (GET /api/todos/stats).
func (h *Handlers) GetStats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		h.logger.Error("Failed to fetch todo stats", "error", err)
		return sendError(c, fiber.StatusInternalServerError, "Failed to fetch todo stats")
	}
	return c.JSON(stats)
}

// decodeBody unmarshals a JSON body regardless of Content-Type.
// An empty body decodes to the zero value.
func decodeBody(c *fiber.Ctx, out any) error {
	body := c.Body()
	if len(body) == 0 {
		return nil
	}
	return c.App().Config().JSONDecoder(body, out)
}

// parseID reads the :id path parameter as a base-10 integer.
func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, todo.ErrInvalidID
	}
	return id, nil
}

func sendError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(ErrorResponse{Error: message})
}
