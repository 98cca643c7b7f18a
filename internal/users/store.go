package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/taskboard/taskboard/internal/query"
	"github.com/taskboard/taskboard/internal/zerrors"
)

// UserSchema represents the users table schema in PostgreSQL
type UserSchema struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string    `bun:"id,pk"`
	Name         string    `bun:"name,notnull"`
	Email        string    `bun:"email,notnull,unique"`
	PendingTasks []string  `bun:"pending_tasks,array,notnull"`
	DateCreated  time.Time `bun:"date_created,notnull,default:current_timestamp"`
}

// UserIndexes are created alongside the users table
var UserIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_users_date_created ON users(date_created)",
	"CREATE INDEX IF NOT EXISTS idx_users_pending_tasks ON users USING gin (pending_tasks)",
}

// PostgresStore implements UserStore using PostgreSQL
type PostgresStore struct {
	db *bun.DB
}

// NewPostgresStore creates a new PostgreSQL user store
func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateUser inserts a new user; a taken email yields a ConflictError
func (s *PostgresStore) CreateUser(ctx context.Context, user *User) error {
	row := UserToUserSchema(user)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return zerrors.NewConflictError("user", "email", user.Email, err)
		}
		return zerrors.NewStorageQueryError("create", "user", err)
	}
	return nil
}

// GetUser retrieves a user by id
func (s *PostgresStore) GetUser(ctx context.Context, userID string) (*User, error) {
	var row UserSchema
	err := s.db.NewSelect().Model(&row).Where("id = ?", userID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, zerrors.NewNotFoundError("user", userID)
		}
		return nil, zerrors.NewStorageQueryError("get", "user", err)
	}
	return UserSchemaToUser(row), nil
}

// ListUsers returns the users selected by q in creation order unless sorted
func (s *PostgresStore) ListUsers(ctx context.Context, q query.Query) ([]*User, error) {
	var rows []UserSchema
	sq := query.ApplyToSelect(s.db.NewSelect().Model(&rows), q, "date_created", "id")
	if err := sq.Scan(ctx); err != nil {
		return nil, zerrors.NewStorageQueryError("list", "user", err)
	}

	out := make([]*User, 0, len(rows))
	for _, row := range rows {
		out = append(out, UserSchemaToUser(row))
	}
	return out, nil
}

// CountUsers counts the users matching q's filter, windowed by skip and limit
func (s *PostgresStore) CountUsers(ctx context.Context, q query.Query) (int, error) {
	total, err := query.ApplyFilter(s.db.NewSelect().Model((*UserSchema)(nil)), q.Filter).Count(ctx)
	if err != nil {
		return 0, zerrors.NewStorageQueryError("count", "user", err)
	}
	return q.Window(total), nil
}

// ReplaceUser overwrites name, email and pendingTasks of an existing user
func (s *PostgresStore) ReplaceUser(ctx context.Context, user *User) error {
	row := UserToUserSchema(user)
	result, err := s.db.NewUpdate().
		Model(&row).
		Column("name", "email", "pending_tasks").
		WherePK().
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return zerrors.NewConflictError("user", "email", user.Email, err)
		}
		return zerrors.NewStorageQueryError("replace", "user", err)
	}
	return requireRow(result, user.ID)
}

// DeleteUser removes a user
func (s *PostgresStore) DeleteUser(ctx context.Context, userID string) error {
	result, err := s.db.NewDelete().
		Model((*UserSchema)(nil)).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return zerrors.NewStorageQueryError("delete", "user", err)
	}
	return requireRow(result, userID)
}

// AddPendingTask appends taskID to the user's pendingTasks unless already present
func (s *PostgresStore) AddPendingTask(ctx context.Context, userID, taskID string) error {
	_, err := s.db.NewUpdate().
		Model((*UserSchema)(nil)).
		Set("pending_tasks = array_append(pending_tasks, ?)", taskID).
		Where("id = ?", userID).
		Where("NOT (? = ANY(pending_tasks))", taskID).
		Exec(ctx)
	if err != nil {
		return zerrors.NewStorageQueryError("add_pending_task", "user", err)
	}
	return nil
}

// RemovePendingTask pulls taskID from the user's pendingTasks
func (s *PostgresStore) RemovePendingTask(ctx context.Context, userID, taskID string) error {
	_, err := s.db.NewUpdate().
		Model((*UserSchema)(nil)).
		Set("pending_tasks = array_remove(pending_tasks, ?)", taskID).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return zerrors.NewStorageQueryError("remove_pending_task", "user", err)
	}
	return nil
}

// RemovePendingTasksFromOthers pulls taskIDs from every user except userID
func (s *PostgresStore) RemovePendingTasksFromOthers(ctx context.Context, userID string, taskIDs []string) error {
	if len(taskIDs) == 0 {
		return nil
	}
	ids := pgdialect.Array(taskIDs)
	_, err := s.db.NewUpdate().
		Model((*UserSchema)(nil)).
		Set("pending_tasks = ARRAY(SELECT t FROM unnest(pending_tasks) AS t WHERE t <> ALL(?::text[]))", ids).
		Where("id <> ?", userID).
		Where("pending_tasks && ?::text[]", ids).
		Exec(ctx)
	if err != nil {
		return zerrors.NewStorageQueryError("remove_pending_tasks", "user", err)
	}
	return nil
}

func requireRow(result sql.Result, userID string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return zerrors.NewNotFoundError("user", userID)
	}
	return nil
}

// isUniqueViolation reports a Postgres unique_violation (SQLSTATE 23505)
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "duplicate key value violates unique constraint")
}

// Helper conversion functions
func UserSchemaToUser(row UserSchema) *User {
	return &User{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		PendingTasks: clonePending(row.PendingTasks),
		DateCreated:  row.DateCreated.UTC(),
	}
}

func UserToUserSchema(user *User) UserSchema {
	return UserSchema{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		PendingTasks: clonePending(user.PendingTasks),
		DateCreated:  user.DateCreated,
	}
}
