package todo

// CreateTodoRequest is the body of POST /api/todos.
// Title is a pointer so an absent field can be told apart from an empty one.
type CreateTodoRequest struct {
	Title *string `json:"title"`
}

// UpdateTodoRequest is the body of PUT /api/todos/:id.
type UpdateTodoRequest struct {
	Completed *bool `json:"completed"`
}

// DeleteTodoResponse confirms a delete.
type DeleteTodoResponse struct {
	Message string `json:"message"`
}
