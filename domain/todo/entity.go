// Package todo holds the Todo entity shared by the storage and HTTP layers.
package todo

import "time"

// MaxTitleLength is the largest title the todos table accepts, in characters.
const MaxTitleLength = 255

// Todo is a single task record.
type Todo struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Completed bool      `json:"completed" db:"completed"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Stats summarizes completion across all todos.
type Stats struct {
	Total          int64 `json:"total" db:"total"`
	Completed      int64 `json:"completed" db:"completed"`
	Pending        int64 `json:"pending" db:"pending"`
	CompletionRate int   `json:"completion_rate" db:"-"`
}

// NewStats derives pending and the rounded completion percentage.
func NewStats(total, completed int64) Stats {
	s := Stats{
		Total:     total,
		Completed: completed,
		Pending:   total - completed,
	}
	if total > 0 {
		// round half up on integers
		s.CompletionRate = int((completed*200 + total) / (total * 2))
	}
	return s
}
