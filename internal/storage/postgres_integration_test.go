package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/taskboard/taskboard/internal/query"
	"github.com/taskboard/taskboard/internal/relations"
	"github.com/taskboard/taskboard/internal/tasks"
	"github.com/taskboard/taskboard/internal/users"
	"github.com/taskboard/taskboard/internal/zerrors"
)

// openTestDB connects to TASKBOARD_TEST_DATABASE_URL and starts from empty tables
func openTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := os.Getenv("TASKBOARD_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TASKBOARD_TEST_DATABASE_URL not set, skipping PostgreSQL integration test")
	}

	ctx := context.Background()
	db, err := Open(ctx, dsn, 4)
	if err != nil {
		t.Skipf("PostgreSQL not reachable, skipping integration test: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(ctx, db))
	_, err = db.ExecContext(ctx, "TRUNCATE TABLE tasks, users")
	require.NoError(t, err)
	return db
}

func TestPostgresUserStore(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := users.NewPostgresStore(db)

	req := &users.UserRequest{Name: "Ada", Email: "ada@example.com"}
	require.NoError(t, req.Validate())
	ada := req.ToUser()
	require.NoError(t, store.CreateUser(ctx, ada))

	dup := (&users.UserRequest{Name: "Other", Email: "ada@example.com"}).ToUser()
	err := store.CreateUser(ctx, dup)
	require.Error(t, err)
	assert.True(t, zerrors.IsConflict(err))

	require.NoError(t, store.AddPendingTask(ctx, ada.ID, "t1"))
	require.NoError(t, store.AddPendingTask(ctx, ada.ID, "t1"))
	require.NoError(t, store.AddPendingTask(ctx, ada.ID, "t2"))

	got, err := store.GetUser(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, got.PendingTasks)

	grace := (&users.UserRequest{Name: "Grace", Email: "grace@example.com", PendingTasks: []string{"t2"}}).ToUser()
	require.NoError(t, store.CreateUser(ctx, grace))
	require.NoError(t, store.RemovePendingTasksFromOthers(ctx, grace.ID, []string{"t2"}))

	got, err = store.GetUser(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, got.PendingTasks)

	require.NoError(t, store.RemovePendingTask(ctx, ada.ID, "t1"))
	got, err = store.GetUser(ctx, ada.ID)
	require.NoError(t, err)
	assert.Empty(t, got.PendingTasks)

	filter, err := query.ParseFilter(`{"pendingTasks":"t2"}`, users.QuerySchema)
	require.NoError(t, err)
	listed, err := store.ListUsers(ctx, query.Query{Filter: filter})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, grace.ID, listed[0].ID)

	count, err := store.CountUsers(ctx, query.Query{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = store.GetUser(ctx, "not-a-uuid")
	assert.True(t, zerrors.IsNotFound(err))

	require.NoError(t, store.DeleteUser(ctx, ada.ID))
	assert.True(t, zerrors.IsNotFound(store.DeleteUser(ctx, ada.ID)))
}

func TestPostgresTaskStoreAndReconciliation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	logger := zap.NewNop()

	userStore := users.NewPostgresStore(db)
	taskStore := tasks.NewPostgresStore(db)
	manager := relations.NewManager(userStore, taskStore, logger)
	userService := users.NewService(userStore, manager, logger)
	taskService := tasks.NewService(taskStore, manager, logger)

	ada, err := userService.CreateUser(ctx, &users.UserRequest{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	deadline := tasks.FlexibleTime{Time: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), Set: true, Valid: true}
	task, err := taskService.CreateTask(ctx, &tasks.TaskRequest{Name: "write", Deadline: deadline, AssignedUser: ada.ID})
	require.NoError(t, err)
	assert.Equal(t, "Ada", task.AssignedUserName)

	got, err := userStore.GetUser(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{task.ID}, got.PendingTasks)

	_, err = taskService.ReplaceTask(ctx, task.ID, &tasks.TaskRequest{Name: "write", Deadline: deadline, Completed: true, AssignedUser: ada.ID})
	require.NoError(t, err)

	got, err = userStore.GetUser(ctx, ada.ID)
	require.NoError(t, err)
	assert.Empty(t, got.PendingTasks)

	stored, err := taskStore.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, stored.Completed)
	assert.True(t, deadline.Time.Equal(stored.Deadline))
	assert.WithinDuration(t, task.DateCreated, stored.DateCreated, time.Millisecond)

	require.NoError(t, userService.DeleteUser(ctx, ada.ID))
	stored, err = taskStore.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "", stored.AssignedUser)
	assert.Equal(t, tasks.UnassignedName, stored.AssignedUserName)

	count, err := taskStore.CountTasks(ctx, query.Query{Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, taskService.DeleteTask(ctx, task.ID))
	_, err = taskStore.GetTask(ctx, task.ID)
	assert.True(t, zerrors.IsNotFound(err))
}
