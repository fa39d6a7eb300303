package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/OkanBey11/ToDoApiWithGemini/types"
)

const taskColumns = `id, title, description, priority, complete, owner_id, created_at, updated_at`

// TaskRepository persists tasks. Every method is scoped to an owner: rows
// belonging to other users behave exactly like rows that do not exist.
type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) ListForOwner(ctx context.Context, ownerID int64) ([]types.Task, error) {
	const query = `SELECT ` + taskColumns + ` FROM todos WHERE owner_id = $1 ORDER BY id`

	tasks := make([]types.Task, 0)
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, ownerID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			task, err := scanTask(rows)
			if err != nil {
				return err
			}
			tasks = append(tasks, task)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) GetForOwner(ctx context.Context, ownerID, taskID int64) (types.Task, error) {
	const query = `SELECT ` + taskColumns + ` FROM todos WHERE id = $1 AND owner_id = $2`

	var task types.Task
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		task, err = scanTask(tx.QueryRowContext(ctx, query, taskID, ownerID))
		return err
	})
	if err != nil {
		return types.Task{}, err
	}
	return task, nil
}

// Create inserts task owned by ownerID. Any OwnerID already set on task is
// overwritten.
func (r *TaskRepository) Create(ctx context.Context, ownerID int64, task types.Task) (types.Task, error) {
	now := time.Now().UTC()
	task.OwnerID = ownerID
	task.CreatedAt = now
	task.UpdatedAt = now

	const query = `
		INSERT INTO todos (title, description, priority, complete, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		return tx.QueryRowContext(
			ctx,
			query,
			task.Title,
			task.Description,
			task.Priority,
			task.Completed,
			task.OwnerID,
			task.CreatedAt,
			task.UpdatedAt,
		).Scan(&task.ID)
	})
	if err != nil {
		return types.Task{}, mapWriteError(err)
	}
	return task, nil
}

// UpdateForOwner replaces title, description, priority and completion of
// the task identified by task.ID. The ownership check and the write run in
// one transaction with the row locked.
func (r *TaskRepository) UpdateForOwner(ctx context.Context, ownerID int64, task types.Task) (types.Task, error) {
	const lockQuery = `SELECT ` + taskColumns + ` FROM todos WHERE id = $1 AND owner_id = $2 FOR UPDATE`
	const updateQuery = `
		UPDATE todos
		SET title = $1,
			description = $2,
			priority = $3,
			complete = $4,
			updated_at = $5
		WHERE id = $6 AND owner_id = $7`

	var updated types.Task
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		current, err := scanTask(tx.QueryRowContext(ctx, lockQuery, task.ID, ownerID))
		if err != nil {
			return err
		}

		current.Title = task.Title
		current.Description = task.Description
		current.Priority = task.Priority
		current.Completed = task.Completed
		current.UpdatedAt = time.Now().UTC()

		result, err := tx.ExecContext(
			ctx,
			updateQuery,
			current.Title,
			current.Description,
			current.Priority,
			current.Completed,
			current.UpdatedAt,
			current.ID,
			ownerID,
		)
		if err != nil {
			return err
		}
		if err := requireAffected(result); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return types.Task{}, err
	}
	return updated, nil
}

func (r *TaskRepository) DeleteForOwner(ctx context.Context, ownerID, taskID int64) error {
	const query = `DELETE FROM todos WHERE id = $1 AND owner_id = $2`
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, taskID, ownerID)
		if err != nil {
			return err
		}
		return requireAffected(result)
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (types.Task, error) {
	var task types.Task
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Priority,
		&task.Completed,
		&task.OwnerID,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Task{}, ErrNotFound
		}
		return types.Task{}, err
	}
	return task, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
