package tasks

import (
	"context"

	"go.uber.org/zap"

	"github.com/taskboard/taskboard/internal/query"
	"github.com/taskboard/taskboard/internal/zerrors"
)

// Service implements TaskManager on top of a TaskStore and a Reconciler
type Service struct {
	store      TaskStore
	reconciler Reconciler
	logger     *zap.Logger
}

// NewService creates a new task service
func NewService(store TaskStore, reconciler Reconciler, logger *zap.Logger) *Service {
	return &Service{
		store:      store,
		reconciler: reconciler,
		logger:     logger,
	}
}

// CreateTask validates the request, resolves the assignee, stores the task and
// records it in the assignee's pendingTasks
func (s *Service) CreateTask(ctx context.Context, req *TaskRequest) (*Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	assigneeName, err := s.reconciler.ResolveAssignee(ctx, req.AssignedUser)
	if err != nil {
		return nil, err
	}

	task := req.ToTask(assigneeName)
	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, err
	}

	if err := s.reconciler.ReconcileOnTaskWrite(ctx, nil, task); err != nil {
		s.logger.Error("Task saved but assignee was not reconciled",
			zap.String("task_id", task.ID),
			zap.String("assigned_user", task.AssignedUser),
			zap.Error(err))
		return nil, zerrors.NewSyncError("create", "task", err)
	}
	return task, nil
}

func (s *Service) GetTask(ctx context.Context, taskID string) (*Task, error) {
	return s.store.GetTask(ctx, taskID)
}

func (s *Service) ListTasks(ctx context.Context, q query.Query) ([]*Task, error) {
	return s.store.ListTasks(ctx, q)
}

func (s *Service) CountTasks(ctx context.Context, q query.Query) (int, error) {
	return s.store.CountTasks(ctx, q)
}

// ReplaceTask fully replaces an existing task and moves it between users'
// pendingTasks as its assignee or completion changes
func (s *Service) ReplaceTask(ctx context.Context, taskID string, req *TaskRequest) (*Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	prev, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	assigneeName, err := s.reconciler.ResolveAssignee(ctx, req.AssignedUser)
	if err != nil {
		return nil, err
	}

	next := prev.Clone()
	req.ApplyTo(next, assigneeName)
	if err := s.store.ReplaceTask(ctx, next); err != nil {
		return nil, err
	}

	if err := s.reconciler.ReconcileOnTaskWrite(ctx, prev, next); err != nil {
		s.logger.Error("Task replaced but assignees were not reconciled",
			zap.String("task_id", next.ID),
			zap.String("previous_user", prev.AssignedUser),
			zap.String("assigned_user", next.AssignedUser),
			zap.Error(err))
		return nil, zerrors.NewSyncError("replace", "task", err)
	}
	return next, nil
}

// DeleteTask pulls the task from its assignee's pendingTasks and removes it
func (s *Service) DeleteTask(ctx context.Context, taskID string) error {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	if err := s.reconciler.ReconcileOnTaskDelete(ctx, task); err != nil {
		return zerrors.NewSyncError("delete", "task", err)
	}

	return s.store.DeleteTask(ctx, taskID)
}
