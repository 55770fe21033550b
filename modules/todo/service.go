package todo

import (
	"context"
	"strings"
	"unicode/utf8"

	domain "github.com/example/todo-app/domain/todo"
)

// TodoService defines the todo use cases exposed to the HTTP layer.
type TodoService interface {
	List(ctx context.Context) ([]domain.Todo, error)
	Create(ctx context.Context, req CreateTodoRequest) (domain.Todo, error)
	SetCompleted(ctx context.Context, id int64, req UpdateTodoRequest) (domain.Todo, error)
	Delete(ctx context.Context, id int64) (domain.Todo, error)
	Stats(ctx context.Context) (domain.Stats, error)
	Ping(ctx context.Context) error
}

type todoService struct {
	store Store
}

var _ TodoService = (*todoService)(nil)

// NewTodoService creates a service backed by store.
func NewTodoService(store Store) TodoService {
	return &todoService{store: store}
}

func (s *todoService) List(ctx context.Context) ([]domain.Todo, error) {
	return s.store.List(ctx)
}

// Create trims the title and rejects it when blank or longer than the column allows.
func (s *todoService) Create(ctx context.Context, req CreateTodoRequest) (domain.Todo, error) {
	if req.Title == nil {
		return domain.Todo{}, ErrTitleRequired
	}
	title := strings.TrimSpace(*req.Title)
	if title == "" {
		return domain.Todo{}, ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > domain.MaxTitleLength {
		return domain.Todo{}, ErrTitleTooLong
	}
	return s.store.Insert(ctx, title)
}

func (s *todoService) SetCompleted(ctx context.Context, id int64, req UpdateTodoRequest) (domain.Todo, error) {
	if req.Completed == nil {
		return domain.Todo{}, ErrCompletedRequired
	}
	return s.store.UpdateCompleted(ctx, id, *req.Completed)
}

func (s *todoService) Delete(ctx context.Context, id int64) (domain.Todo, error) {
	return s.store.Delete(ctx, id)
}

func (s *todoService) Stats(ctx context.Context) (domain.Stats, error) {
	return s.store.Stats(ctx)
}

func (s *todoService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
