package users

import (
	"context"
	"sync"

	"github.com/taskboard/taskboard/internal/query"
	"github.com/taskboard/taskboard/internal/zerrors"
)

// InMemoryStore implements UserStore with in-memory storage
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[string]*User
	order []string
}

// NewInMemoryStore creates a new in-memory user store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users: make(map[string]*User),
	}
}

func (s *InMemoryStore) CreateUser(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailTaken(user.Email, "") {
		return zerrors.NewConflictError("user", "email", user.Email, nil)
	}
	s.users[user.ID] = user.Clone()
	s.order = append(s.order, user.ID)
	return nil
}

func (s *InMemoryStore) GetUser(ctx context.Context, userID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, zerrors.NewNotFoundError("user", userID)
	}
	return user.Clone(), nil
}

func (s *InMemoryStore) ListUsers(ctx context.Context, q query.Query) ([]*User, error) {
	return query.Apply(s.snapshot(), q), nil
}

func (s *InMemoryStore) CountUsers(ctx context.Context, q query.Query) (int, error) {
	return query.CountMatches(s.snapshot(), q), nil
}

func (s *InMemoryStore) ReplaceUser(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return zerrors.NewNotFoundError("user", user.ID)
	}
	if s.emailTaken(user.Email, user.ID) {
		return zerrors.NewConflictError("user", "email", user.Email, nil)
	}
	existing.Name = user.Name
	existing.Email = user.Email
	existing.PendingTasks = clonePending(user.PendingTasks)
	return nil
}

func (s *InMemoryStore) DeleteUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return zerrors.NewNotFoundError("user", userID)
	}
	delete(s.users, userID)
	for i, id := range s.order {
		if id == userID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *InMemoryStore) AddPendingTask(ctx context.Context, userID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return nil
	}
	for _, id := range user.PendingTasks {
		if id == taskID {
			return nil
		}
	}
	user.PendingTasks = append(user.PendingTasks, taskID)
	return nil
}

func (s *InMemoryStore) RemovePendingTask(ctx context.Context, userID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, ok := s.users[userID]; ok {
		user.PendingTasks = without(user.PendingTasks, map[string]bool{taskID: true})
	}
	return nil
}

func (s *InMemoryStore) RemovePendingTasksFromOthers(ctx context.Context, userID string, taskIDs []string) error {
	if len(taskIDs) == 0 {
		return nil
	}
	drop := make(map[string]bool, len(taskIDs))
	for _, id := range taskIDs {
		drop[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, user := range s.users {
		if id != userID {
			user.PendingTasks = without(user.PendingTasks, drop)
		}
	}
	return nil
}

// snapshot copies the users in insertion order
func (s *InMemoryStore) snapshot() []*User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*User, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.users[id].Clone())
	}
	return out
}

// emailTaken mirrors the unique index on users.email; caller holds mu
func (s *InMemoryStore) emailTaken(email, exceptID string) bool {
	for id, user := range s.users {
		if id != exceptID && user.Email == email {
			return true
		}
	}
	return false
}

func without(ids []string, drop map[string]bool) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return out
}
