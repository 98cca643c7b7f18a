package storage

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/taskboard/taskboard/internal/tasks"
	"github.com/taskboard/taskboard/internal/users"
)

// CreateTables creates the users and tasks tables
func CreateTables(ctx context.Context, db *bun.DB) error {
	models := []interface{}{
		(*users.UserSchema)(nil),
		(*tasks.TaskSchema)(nil),
	}

	for _, model := range models {
		_, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table for model %T: %w", model, err)
		}
	}

	return nil
}

// CreateIndexes creates the secondary indexes used by list queries and
// reference reconciliation
func CreateIndexes(ctx context.Context, db *bun.DB) error {
	allIndexes := append([]string{}, users.UserIndexes...)
	allIndexes = append(allIndexes, tasks.TaskIndexes...)

	for _, indexSQL := range allIndexes {
		_, err := db.ExecContext(ctx, indexSQL)
		if err != nil {
			return fmt.Errorf("failed to create index with SQL %q: %w", indexSQL, err)
		}
	}

	return nil
}

// Migrate creates every table and index; it is safe to run repeatedly
func Migrate(ctx context.Context, db *bun.DB) error {
	if err := CreateTables(ctx, db); err != nil {
		return err
	}
	return CreateIndexes(ctx, db)
}
