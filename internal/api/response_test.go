package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskboard/taskboard/internal/zerrors"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", zerrors.NewValidationError("name", "", "name and deadline are required"), http.StatusBadRequest, "name and deadline are required"},
		{"wrapped validation", fmt.Errorf("create: %w", zerrors.NewValidationError("assignedUser", "x", "assignedUser not found")), http.StatusBadRequest, "assignedUser not found"},
		{"task not found", zerrors.NewNotFoundError("task", "t1"), http.StatusNotFound, "Task not found"},
		{"user not found", zerrors.NewNotFoundError("user", "u1"), http.StatusNotFound, "User not found"},
		{"conflict", zerrors.NewConflictError("user", "email", "a@b.c", nil), http.StatusBadRequest, "email must be unique"},
		{"storage", zerrors.NewStorageQueryError("list", "task", errors.New("timeout")), http.StatusInternalServerError, "Server error"},
		{"sync", zerrors.NewSyncError("create", "task", errors.New("reset")), http.StatusInternalServerError, "Server error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "Server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, message := StatusCode(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.message, message)
		})
	}
}
