package tasks

import (
	"context"

	"github.com/taskboard/taskboard/internal/query"
)

// TaskStore defines the interface for task storage operations
type TaskStore interface {
	CreateTask(ctx context.Context, task *Task) error
	GetTask(ctx context.Context, taskID string) (*Task, error)
	ListTasks(ctx context.Context, q query.Query) ([]*Task, error)
	CountTasks(ctx context.Context, q query.Query) (int, error)
	ReplaceTask(ctx context.Context, task *Task) error
	DeleteTask(ctx context.Context, taskID string) error

	// assignment maintenance driven by user writes
	AssignTasks(ctx context.Context, taskIDs []string, userID, userName string) error
	UnassignTasks(ctx context.Context, taskIDs []string) error
	UnassignUserExcept(ctx context.Context, userID string, keep []string) error
}

// Reconciler resolves assignees and keeps users' pendingTasks in step with
// task writes
type Reconciler interface {
	ResolveAssignee(ctx context.Context, userID string) (string, error)
	ReconcileOnTaskWrite(ctx context.Context, prev, next *Task) error
	ReconcileOnTaskDelete(ctx context.Context, task *Task) error
}

// TaskManager defines the operations exposed to the HTTP layer
type TaskManager interface {
	CreateTask(ctx context.Context, req *TaskRequest) (*Task, error)
	GetTask(ctx context.Context, taskID string) (*Task, error)
	ListTasks(ctx context.Context, q query.Query) ([]*Task, error)
	CountTasks(ctx context.Context, q query.Query) (int, error)
	ReplaceTask(ctx context.Context, taskID string, req *TaskRequest) (*Task, error)
	DeleteTask(ctx context.Context, taskID string) error
}
