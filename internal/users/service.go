package users

import (
	"context"

	"go.uber.org/zap"

	"github.com/taskboard/taskboard/internal/query"
	"github.com/taskboard/taskboard/internal/zerrors"
)

// Service implements UserManager. Every write is followed by reconciliation of
// the tasks the user references.
type Service struct {
	store      UserStore
	reconciler Reconciler
	logger     *zap.Logger
}

// NewService creates a new user service
func NewService(store UserStore, reconciler Reconciler, logger *zap.Logger) *Service {
	return &Service{
		store:      store,
		reconciler: reconciler,
		logger:     logger,
	}
}

// CreateUser validates, stores and reconciles a new user
func (s *Service) CreateUser(ctx context.Context, req *UserRequest) (*User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user := req.ToUser()
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	if err := s.reconciler.ReconcileOnUserWrite(ctx, user); err != nil {
		s.logger.Error("User saved but task references were not reconciled",
			zap.String("user_id", user.ID),
			zap.Error(err))
		return nil, zerrors.NewSyncError("create", "user", err)
	}

	s.logger.Info("User created",
		zap.String("user_id", user.ID),
		zap.Int("pending_tasks", len(user.PendingTasks)))
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	return s.store.GetUser(ctx, userID)
}

func (s *Service) ListUsers(ctx context.Context, q query.Query) ([]*User, error) {
	return s.store.ListUsers(ctx, q)
}

func (s *Service) CountUsers(ctx context.Context, q query.Query) (int, error) {
	return s.store.CountUsers(ctx, q)
}

// ReplaceUser fully replaces an existing user. The submitted pendingTasks list
// becomes authoritative for which tasks are assigned to the user.
func (s *Service) ReplaceUser(ctx context.Context, userID string, req *UserRequest) (*User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	req.ApplyTo(user)
	if err := s.store.ReplaceUser(ctx, user); err != nil {
		return nil, err
	}

	if err := s.reconciler.ReconcileOnUserWrite(ctx, user); err != nil {
		s.logger.Error("User replaced but task references were not reconciled",
			zap.String("user_id", user.ID),
			zap.Error(err))
		return nil, zerrors.NewSyncError("replace", "user", err)
	}
	return user, nil
}

// DeleteUser unassigns the user's tasks and then removes the user
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.reconciler.ReconcileOnUserDelete(ctx, user); err != nil {
		return zerrors.NewSyncError("delete", "user", err)
	}

	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("User deleted", zap.String("user_id", userID))
	return nil
}
