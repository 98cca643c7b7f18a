package users

import (
	"context"

	"github.com/taskboard/taskboard/internal/query"
)

// UserStore defines the interface for user storage operations
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, userID string) (*User, error)
	ListUsers(ctx context.Context, q query.Query) ([]*User, error)
	CountUsers(ctx context.Context, q query.Query) (int, error)
	ReplaceUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, userID string) error

	// pendingTasks maintenance
	AddPendingTask(ctx context.Context, userID, taskID string) error
	RemovePendingTask(ctx context.Context, userID, taskID string) error
	RemovePendingTasksFromOthers(ctx context.Context, userID string, taskIDs []string) error
}

// Reconciler brings tasks in line with a user's pendingTasks
type Reconciler interface {
	ReconcileOnUserWrite(ctx context.Context, user *User) error
	ReconcileOnUserDelete(ctx context.Context, user *User) error
}

// UserManager defines the operations exposed to the HTTP layer
type UserManager interface {
	CreateUser(ctx context.Context, req *UserRequest) (*User, error)
	GetUser(ctx context.Context, userID string) (*User, error)
	ListUsers(ctx context.Context, q query.Query) ([]*User, error)
	CountUsers(ctx context.Context, q query.Query) (int, error)
	ReplaceUser(ctx context.Context, userID string, req *UserRequest) (*User, error)
	DeleteUser(ctx context.Context, userID string) error
}
