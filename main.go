// Todo App - a small task tracker API on Fiber, PostgreSQL and the mono framework.
//
// Endpoints:
//   - GET    /api/health
//   - GET    /api/todos
//   - POST   /api/todos
//   - GET    /api/todos/stats
//   - PUT    /api/todos/:id
//   - DELETE /api/todos/:id
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
