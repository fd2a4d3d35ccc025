package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tasklist/tasklist-go/internal/model"
)

const taskColumns = `id, title, description, status, created_by, created_at, updated_at`

// TaskRepository handles task persistence in MySQL.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a new task, assigning its ID and timestamps.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	task.CreatedAt = now()
	task.UpdatedAt = task.CreatedAt

	query := `INSERT INTO tasks (` + taskColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		task.ID, task.Title, task.Description, string(task.Status), task.CreatedBy, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}
	return nil
}

// GetByID retrieves a task by its ID.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("querying task: %w", err)
	}
	return task, nil
}

// List returns one page of tasks, newest first, and the total number of
// tasks matching the filter.
func (r *TaskRepository) List(ctx context.Context, filter model.TaskFilter) ([]model.Task, int, error) {
	where := ""
	var args []any
	if filter.OwnerID != "" {
		where = ` WHERE created_by = ?`
		args = append(args, filter.OwnerID)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting tasks: %w", err)
	}
	if filter.Offset < 0 {
		return nil, total, nil
	}

	query := `SELECT ` + taskColumns + ` FROM tasks` + where + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating tasks: %w", err)
	}

	return tasks, total, nil
}

// Update writes the mutable fields of a task.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	task.UpdatedAt = now()

	query := `UPDATE tasks SET title = ?, description = ?, status = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, task.Title, task.Description, string(task.Status), task.UpdatedAt, task.ID)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	if rows == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Delete removes a task permanently.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if rows == 0 {
		return ErrTaskNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*model.Task, error) {
	var t model.Task
	var status string
	if err := s.Scan(&t.ID, &t.Title, &t.Description, &status, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = model.TaskStatus(status)
	return &t, nil
}
