package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/tasklist/tasklist-go/internal/model"
)

func newTaskRepoWithMock(t *testing.T) (*TaskRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewTaskRepository(db), mock
}

var taskRowColumns = []string{"id", "title", "description", "status", "created_by", "created_at", "updated_at"}

func TestTaskRepository_Create(t *testing.T) {
	repo, mock := newTaskRepoWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks")).
		WithArgs(sqlmock.AnyArg(), "Write docs", "", "pending", "u-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	task := &model.Task{Title: "Write docs", Status: model.TaskPending, CreatedBy: "u-1"}
	if err := repo.Create(context.Background(), task); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if task.ID == "" {
		t.Error("Create() should assign an ID")
	}
}

func TestTaskRepository_GetByIDNotFound(t *testing.T) {
	repo, mock := newTaskRepoWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE id = ?")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("GetByID() error = %v, want ErrTaskNotFound", err)
	}
}

func TestTaskRepository_ListByOwner(t *testing.T) {
	repo, mock := newTaskRepoWithMock(t)
	ts := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tasks WHERE created_by = ?")).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE created_by = ? ORDER BY created_at DESC LIMIT ? OFFSET ?")).
		WithArgs("u-1", 10, 10).
		WillReturnRows(sqlmock.NewRows(taskRowColumns).
			AddRow("t-11", "Oldest", "", "completed", "u-1", ts, ts))

	tasks, total, err := repo.List(context.Background(), model.TaskFilter{OwnerID: "u-1", Offset: 10, Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 11 {
		t.Errorf("total = %d, want 11", total)
	}
	if len(tasks) != 1 || tasks[0].Status != model.TaskCompleted {
		t.Errorf("unexpected tasks: %+v", tasks)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestTaskRepository_ListNegativeOffset(t *testing.T) {
	repo, mock := newTaskRepoWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tasks")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	tasks, total, err := repo.List(context.Background(), model.TaskFilter{Offset: -10, Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(tasks) != 0 || total != 3 {
		t.Errorf("List() = %d tasks, total %d; want 0, 3", len(tasks), total)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestTaskRepository_ListAll(t *testing.T) {
	repo, mock := newTaskRepoWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tasks")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM tasks ORDER BY created_at DESC LIMIT ? OFFSET ?")).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows(taskRowColumns))

	tasks, total, err := repo.List(context.Background(), model.TaskFilter{Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 0 || len(tasks) != 0 {
		t.Errorf("List() = %d tasks, total %d; want empty", len(tasks), total)
	}
}

func TestTaskRepository_UpdateNotFound(t *testing.T) {
	repo, mock := newTaskRepoWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &model.Task{ID: "missing", Title: "x", Status: model.TaskPending})
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("Update() error = %v, want ErrTaskNotFound", err)
	}
}

func TestTaskRepository_Delete(t *testing.T) {
	repo, mock := newTaskRepoWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tasks WHERE id = ?")).
		WithArgs("t-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tasks WHERE id = ?")).
		WithArgs("t-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "t-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(context.Background(), "t-1"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("second Delete() error = %v, want ErrTaskNotFound", err)
	}
}
