package tasks

import (
	"context"
	"sync"

	"github.com/taskboard/taskboard/internal/query"
	"github.com/taskboard/taskboard/internal/zerrors"
)

// InMemoryStore implements TaskStore with in-memory storage
type InMemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	order []string
}

// NewInMemoryStore creates a new in-memory task store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tasks: make(map[string]*Task),
	}
}

func (s *InMemoryStore) CreateTask(ctx context.Context, task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[task.ID] = task.Clone()
	s.order = append(s.order, task.ID)
	return nil
}

func (s *InMemoryStore) GetTask(ctx context.Context, taskID string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, zerrors.NewNotFoundError("task", taskID)
	}
	return task.Clone(), nil
}

func (s *InMemoryStore) ListTasks(ctx context.Context, q query.Query) ([]*Task, error) {
	return query.Apply(s.snapshot(), q), nil
}

func (s *InMemoryStore) CountTasks(ctx context.Context, q query.Query) (int, error) {
	return query.CountMatches(s.snapshot(), q), nil
}

func (s *InMemoryStore) ReplaceTask(ctx context.Context, task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[task.ID]
	if !ok {
		return zerrors.NewNotFoundError("task", task.ID)
	}
	replaced := task.Clone()
	replaced.DateCreated = existing.DateCreated
	s.tasks[task.ID] = replaced
	return nil
}

func (s *InMemoryStore) DeleteTask(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[taskID]; !ok {
		return zerrors.NewNotFoundError("task", taskID)
	}
	delete(s.tasks, taskID)
	for i, id := range s.order {
		if id == taskID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *InMemoryStore) AssignTasks(ctx context.Context, taskIDs []string, userID, userName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range taskIDs {
		if task, ok := s.tasks[id]; ok {
			task.AssignedUser = userID
			task.AssignedUserName = userName
		}
	}
	return nil
}

func (s *InMemoryStore) UnassignTasks(ctx context.Context, taskIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range taskIDs {
		if task, ok := s.tasks[id]; ok {
			unassign(task)
		}
	}
	return nil
}

func (s *InMemoryStore) UnassignUserExcept(ctx context.Context, userID string, keep []string) error {
	kept := make(map[string]bool, len(keep))
	for _, id := range keep {
		kept[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, task := range s.tasks {
		if task.AssignedUser == userID && !kept[id] {
			unassign(task)
		}
	}
	return nil
}

// snapshot copies the tasks in insertion order
func (s *InMemoryStore) snapshot() []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Task, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tasks[id].Clone())
	}
	return out
}

func unassign(task *Task) {
	task.AssignedUser = ""
	task.AssignedUserName = UnassignedName
}
