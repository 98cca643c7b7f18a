package relations

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/taskboard/taskboard/internal/metrics"
	"github.com/taskboard/taskboard/internal/tasks"
	"github.com/taskboard/taskboard/internal/users"
	"github.com/taskboard/taskboard/internal/zerrors"
)

// Manager keeps the two denormalized references between users and tasks in
// step: Task.assignedUser/assignedUserName and User.pendingTasks. Updates are
// issued one after another without a transaction, so a failure part way
// leaves the earlier writes in place.
type Manager struct {
	users  users.UserStore
	tasks  tasks.TaskStore
	logger *zap.Logger
}

// NewManager creates a relationship manager over the two stores
func NewManager(userStore users.UserStore, taskStore tasks.TaskStore, logger *zap.Logger) *Manager {
	return &Manager{
		users:  userStore,
		tasks:  taskStore,
		logger: logger,
	}
}

// ResolveAssignee returns the name to store in assignedUserName for userID.
// An unknown user is a validation failure.
func (m *Manager) ResolveAssignee(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return tasks.UnassignedName, nil
	}

	user, err := m.users.GetUser(ctx, userID)
	if err != nil {
		if zerrors.IsNotFound(err) {
			return "", zerrors.NewValidationErrorWithCause("assignedUser", userID, "assignedUser not found", err)
		}
		return "", err
	}
	return user.Name, nil
}

// ReconcileOnTaskWrite updates pendingTasks after a task was saved. prev is
// nil for a newly created task.
func (m *Manager) ReconcileOnTaskWrite(ctx context.Context, prev, next *tasks.Task) (err error) {
	defer func() { metrics.ObserveReconciliation(metrics.KindTaskWrite, err) }()

	if prev != nil && prev.AssignedUser != "" &&
		(prev.AssignedUser != next.AssignedUser || next.Completed) {
		if err := m.users.RemovePendingTask(ctx, prev.AssignedUser, next.ID); err != nil {
			return fmt.Errorf("failed to release task %s from user %s: %w", next.ID, prev.AssignedUser, err)
		}
	}

	if next.Pending() {
		if err := m.users.AddPendingTask(ctx, next.AssignedUser, next.ID); err != nil {
			return fmt.Errorf("failed to add task %s to user %s: %w", next.ID, next.AssignedUser, err)
		}
	}

	m.logger.Debug("Reconciled task write",
		zap.String("task_id", next.ID),
		zap.String("assigned_user", next.AssignedUser),
		zap.Bool("completed", next.Completed))
	return nil
}

// ReconcileOnTaskDelete pulls a task that is about to be deleted from its
// assignee's pendingTasks
func (m *Manager) ReconcileOnTaskDelete(ctx context.Context, task *tasks.Task) (err error) {
	defer func() { metrics.ObserveReconciliation(metrics.KindTaskDelete, err) }()

	if task.AssignedUser == "" {
		return nil
	}
	if err := m.users.RemovePendingTask(ctx, task.AssignedUser, task.ID); err != nil {
		return fmt.Errorf("failed to release task %s from user %s: %w", task.ID, task.AssignedUser, err)
	}
	return nil
}

// ReconcileOnUserWrite treats user.PendingTasks as authoritative: listed
// tasks are assigned to the user (and released by any other user that still
// lists them), the user's other tasks are unassigned.
func (m *Manager) ReconcileOnUserWrite(ctx context.Context, user *users.User) (err error) {
	defer func() { metrics.ObserveReconciliation(metrics.KindUserWrite, err) }()

	if err := m.users.RemovePendingTasksFromOthers(ctx, user.ID, user.PendingTasks); err != nil {
		return fmt.Errorf("failed to release tasks claimed by user %s: %w", user.ID, err)
	}
	if err := m.tasks.AssignTasks(ctx, user.PendingTasks, user.ID, user.Name); err != nil {
		return fmt.Errorf("failed to assign tasks to user %s: %w", user.ID, err)
	}
	if err := m.tasks.UnassignUserExcept(ctx, user.ID, user.PendingTasks); err != nil {
		return fmt.Errorf("failed to unassign dropped tasks of user %s: %w", user.ID, err)
	}

	m.logger.Debug("Reconciled user write",
		zap.String("user_id", user.ID),
		zap.Int("pending_tasks", len(user.PendingTasks)))
	return nil
}

// ReconcileOnUserDelete unassigns every task of a user that is about to be
// deleted, whether or not it is still listed in pendingTasks
func (m *Manager) ReconcileOnUserDelete(ctx context.Context, user *users.User) (err error) {
	defer func() { metrics.ObserveReconciliation(metrics.KindUserDelete, err) }()

	if err := m.tasks.UnassignTasks(ctx, user.PendingTasks); err != nil {
		return fmt.Errorf("failed to unassign tasks of user %s: %w", user.ID, err)
	}
	if err := m.tasks.UnassignUserExcept(ctx, user.ID, nil); err != nil {
		return fmt.Errorf("failed to unassign remaining tasks of user %s: %w", user.ID, err)
	}
	return nil
}
