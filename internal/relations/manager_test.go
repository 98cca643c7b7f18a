package relations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taskboard/taskboard/internal/tasks"
	"github.com/taskboard/taskboard/internal/users"
	"github.com/taskboard/taskboard/internal/zerrors"
)

type fixture struct {
	users   *users.InMemoryStore
	tasks   *tasks.InMemoryStore
	manager *Manager
}

func newFixture() *fixture {
	userStore := users.NewInMemoryStore()
	taskStore := tasks.NewInMemoryStore()
	return &fixture{
		users:   userStore,
		tasks:   taskStore,
		manager: NewManager(userStore, taskStore, zap.NewNop()),
	}
}

func (f *fixture) addUser(t *testing.T, id, name string, pending ...string) *users.User {
	t.Helper()
	user := &users.User{ID: id, Name: name, Email: id + "@example.com", PendingTasks: pending, DateCreated: time.Now()}
	require.NoError(t, f.users.CreateUser(context.Background(), user))
	return user
}

func (f *fixture) addTask(t *testing.T, id, assignee string, completed bool) *tasks.Task {
	t.Helper()
	task := &tasks.Task{
		ID:               id,
		Name:             "task " + id,
		Deadline:         time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Completed:        completed,
		AssignedUser:     assignee,
		AssignedUserName: tasks.UnassignedName,
	}
	require.NoError(t, f.tasks.CreateTask(context.Background(), task))
	return task
}

func (f *fixture) pending(t *testing.T, userID string) []string {
	t.Helper()
	user, err := f.users.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return user.PendingTasks
}

func (f *fixture) task(t *testing.T, taskID string) *tasks.Task {
	t.Helper()
	task, err := f.tasks.GetTask(context.Background(), taskID)
	require.NoError(t, err)
	return task
}

func TestResolveAssignee(t *testing.T) {
	f := newFixture()
	f.addUser(t, "u1", "Ada")
	ctx := context.Background()

	name, err := f.manager.ResolveAssignee(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, tasks.UnassignedName, name)

	name, err = f.manager.ResolveAssignee(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", name)

	_, err = f.manager.ResolveAssignee(ctx, "missing")
	require.Error(t, err)
	assert.True(t, zerrors.IsValidation(err))
}

func TestTaskCreateAddsPending(t *testing.T) {
	f := newFixture()
	f.addUser(t, "u1", "Ada")
	ctx := context.Background()

	open := f.addTask(t, "t1", "u1", false)
	require.NoError(t, f.manager.ReconcileOnTaskWrite(ctx, nil, open))
	require.NoError(t, f.manager.ReconcileOnTaskWrite(ctx, nil, open))

	done := f.addTask(t, "t2", "u1", true)
	require.NoError(t, f.manager.ReconcileOnTaskWrite(ctx, nil, done))

	assert.Equal(t, []string{"t1"}, f.pending(t, "u1"))
}

func TestTaskReassignMovesPending(t *testing.T) {
	f := newFixture()
	f.addUser(t, "u1", "Ada", "t1")
	f.addUser(t, "u2", "Grace")
	ctx := context.Background()

	prev := f.addTask(t, "t1", "u1", false)
	next := prev.Clone()
	next.AssignedUser = "u2"

	require.NoError(t, f.manager.ReconcileOnTaskWrite(ctx, prev, next))

	assert.Empty(t, f.pending(t, "u1"))
	assert.Equal(t, []string{"t1"}, f.pending(t, "u2"))
}

func TestTaskCompletionReleasesPending(t *testing.T) {
	f := newFixture()
	f.addUser(t, "u1", "Ada", "t1", "t9")
	ctx := context.Background()

	prev := f.addTask(t, "t1", "u1", false)
	next := prev.Clone()
	next.Completed = true

	require.NoError(t, f.manager.ReconcileOnTaskWrite(ctx, prev, next))
	assert.Equal(t, []string{"t9"}, f.pending(t, "u1"))
}

func TestTaskDeleteReleasesPending(t *testing.T) {
	f := newFixture()
	f.addUser(t, "u1", "Ada", "t1")
	ctx := context.Background()

	task := f.addTask(t, "t1", "u1", false)
	require.NoError(t, f.manager.ReconcileOnTaskDelete(ctx, task))
	assert.Empty(t, f.pending(t, "u1"))

	unassigned := f.addTask(t, "t2", "", false)
	assert.NoError(t, f.manager.ReconcileOnTaskDelete(ctx, unassigned))
}

func TestUserWriteIsAuthoritative(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.addUser(t, "u2", "Grace", "t2")
	f.addTask(t, "t1", "u1", false)
	f.addTask(t, "t2", "u2", false)
	f.addTask(t, "t3", "u1", false)

	user := f.addUser(t, "u1", "Ada Lovelace", "t1", "t2")
	require.NoError(t, f.manager.ReconcileOnUserWrite(ctx, user))

	for _, id := range []string{"t1", "t2"} {
		task := f.task(t, id)
		assert.Equal(t, "u1", task.AssignedUser)
		assert.Equal(t, "Ada Lovelace", task.AssignedUserName)
	}

	dropped := f.task(t, "t3")
	assert.Equal(t, "", dropped.AssignedUser)
	assert.Equal(t, tasks.UnassignedName, dropped.AssignedUserName)

	assert.Empty(t, f.pending(t, "u2"))
}

func TestUserDeleteUnassignsEverything(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	user := f.addUser(t, "u1", "Ada", "t1")
	f.addTask(t, "t1", "u1", false)
	f.addTask(t, "t2", "u1", true)
	f.addTask(t, "t3", "u9", false)

	require.NoError(t, f.manager.ReconcileOnUserDelete(ctx, user))

	for _, id := range []string{"t1", "t2"} {
		task := f.task(t, id)
		assert.Equal(t, "", task.AssignedUser)
		assert.Equal(t, tasks.UnassignedName, task.AssignedUserName)
	}
	assert.Equal(t, "u9", f.task(t, "t3").AssignedUser)
}

type failingUserStore struct {
	*users.InMemoryStore
}

func (failingUserStore) AddPendingTask(ctx context.Context, userID, taskID string) error {
	return errors.New("connection reset")
}

func TestReconcileErrorsPropagate(t *testing.T) {
	f := newFixture()
	manager := NewManager(failingUserStore{f.users}, f.tasks, zap.NewNop())
	task := f.addTask(t, "t1", "u1", false)

	err := manager.ReconcileOnTaskWrite(context.Background(), nil, task)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}
