package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/taskboard/taskboard/internal/query"
	"github.com/taskboard/taskboard/internal/zerrors"
)

// TaskSchema represents the tasks table schema in PostgreSQL
type TaskSchema struct {
	bun.BaseModel `bun:"table:tasks,alias:t"`

	ID               string    `bun:"id,pk"`
	Name             string    `bun:"name,notnull"`
	Description      string    `bun:"description,notnull"`
	Deadline         time.Time `bun:"deadline,notnull"`
	Completed        bool      `bun:"completed,notnull"`
	AssignedUser     string    `bun:"assigned_user,notnull"`
	AssignedUserName string    `bun:"assigned_user_name,notnull"`
	DateCreated      time.Time `bun:"date_created,notnull,default:current_timestamp"`
}

// TaskIndexes are created alongside the tasks table
var TaskIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_tasks_assigned_user ON tasks(assigned_user)",
	"CREATE INDEX IF NOT EXISTS idx_tasks_deadline ON tasks(deadline)",
	"CREATE INDEX IF NOT EXISTS idx_tasks_date_created ON tasks(date_created)",
}

// PostgresStore implements TaskStore using PostgreSQL
type PostgresStore struct {
	db *bun.DB
}

// NewPostgresStore creates a new PostgreSQL task store
func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateTask(ctx context.Context, task *Task) error {
	row := TaskToTaskSchema(task)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return zerrors.NewStorageQueryError("create", "task", err)
	}
	return nil
}

func (s *PostgresStore) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var row TaskSchema
	err := s.db.NewSelect().Model(&row).Where("id = ?", taskID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, zerrors.NewNotFoundError("task", taskID)
		}
		return nil, zerrors.NewStorageQueryError("get", "task", err)
	}
	return TaskSchemaToTask(row), nil
}

func (s *PostgresStore) ListTasks(ctx context.Context, q query.Query) ([]*Task, error) {
	var rows []TaskSchema
	sq := query.ApplyToSelect(s.db.NewSelect().Model(&rows), q, "date_created", "id")
	if err := sq.Scan(ctx); err != nil {
		return nil, zerrors.NewStorageQueryError("list", "task", err)
	}

	out := make([]*Task, 0, len(rows))
	for _, row := range rows {
		out = append(out, TaskSchemaToTask(row))
	}
	return out, nil
}

func (s *PostgresStore) CountTasks(ctx context.Context, q query.Query) (int, error) {
	total, err := query.ApplyFilter(s.db.NewSelect().Model((*TaskSchema)(nil)), q.Filter).Count(ctx)
	if err != nil {
		return 0, zerrors.NewStorageQueryError("count", "task", err)
	}
	return q.Window(total), nil
}

// ReplaceTask overwrites every field of an existing task except id and dateCreated
func (s *PostgresStore) ReplaceTask(ctx context.Context, task *Task) error {
	row := TaskToTaskSchema(task)
	result, err := s.db.NewUpdate().
		Model(&row).
		ExcludeColumn("date_created").
		WherePK().
		Exec(ctx)
	if err != nil {
		return zerrors.NewStorageQueryError("replace", "task", err)
	}
	return requireRow(result, task.ID)
}

func (s *PostgresStore) DeleteTask(ctx context.Context, taskID string) error {
	result, err := s.db.NewDelete().
		Model((*TaskSchema)(nil)).
		Where("id = ?", taskID).
		Exec(ctx)
	if err != nil {
		return zerrors.NewStorageQueryError("delete", "task", err)
	}
	return requireRow(result, taskID)
}

// AssignTasks points every listed task at the user
func (s *PostgresStore) AssignTasks(ctx context.Context, taskIDs []string, userID, userName string) error {
	if len(taskIDs) == 0 {
		return nil
	}
	_, err := s.db.NewUpdate().
		Model((*TaskSchema)(nil)).
		Set("assigned_user = ?", userID).
		Set("assigned_user_name = ?", userName).
		Where("id IN (?)", bun.In(taskIDs)).
		Exec(ctx)
	if err != nil {
		return zerrors.NewStorageQueryError("assign", "task", err)
	}
	return nil
}

// UnassignTasks clears the assignee of every listed task
func (s *PostgresStore) UnassignTasks(ctx context.Context, taskIDs []string) error {
	if len(taskIDs) == 0 {
		return nil
	}
	_, err := s.db.NewUpdate().
		Model((*TaskSchema)(nil)).
		Set("assigned_user = ''").
		Set("assigned_user_name = ?", UnassignedName).
		Where("id IN (?)", bun.In(taskIDs)).
		Exec(ctx)
	if err != nil {
		return zerrors.NewStorageQueryError("unassign", "task", err)
	}
	return nil
}

// UnassignUserExcept clears the assignee of the user's tasks not listed in keep
func (s *PostgresStore) UnassignUserExcept(ctx context.Context, userID string, keep []string) error {
	uq := s.db.NewUpdate().
		Model((*TaskSchema)(nil)).
		Set("assigned_user = ''").
		Set("assigned_user_name = ?", UnassignedName).
		Where("assigned_user = ?", userID)
	if len(keep) > 0 {
		uq = uq.Where("id NOT IN (?)", bun.In(keep))
	}
	if _, err := uq.Exec(ctx); err != nil {
		return zerrors.NewStorageQueryError("unassign", "task", err)
	}
	return nil
}

func requireRow(result sql.Result, taskID string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return zerrors.NewNotFoundError("task", taskID)
	}
	return nil
}

// Helper conversion functions
func TaskSchemaToTask(row TaskSchema) *Task {
	return &Task{
		ID:               row.ID,
		Name:             row.Name,
		Description:      row.Description,
		Deadline:         row.Deadline.UTC(),
		Completed:        row.Completed,
		AssignedUser:     row.AssignedUser,
		AssignedUserName: row.AssignedUserName,
		DateCreated:      row.DateCreated.UTC(),
	}
}

func TaskToTaskSchema(task *Task) TaskSchema {
	return TaskSchema{
		ID:               task.ID,
		Name:             task.Name,
		Description:      task.Description,
		Deadline:         task.Deadline,
		Completed:        task.Completed,
		AssignedUser:     task.AssignedUser,
		AssignedUserName: task.AssignedUserName,
		DateCreated:      task.DateCreated,
	}
}
