package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tasklist/tasklist-go/internal/model"
)

func TestMemoryUserRepository_CreateAndFind(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	user := &model.User{Name: "Ann", Email: "Ann@X.com", PasswordHash: "hash", Role: model.RoleUser}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	byEmail, err := repo.GetByEmail(ctx, "ann@x.COM")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("GetByEmail() ID = %q, want %q", byEmail.ID, user.ID)
	}

	byID, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if byID.Email != "ann@x.com" {
		t.Errorf("Email = %q, want %q", byID.Email, "ann@x.com")
	}

	if err := repo.Delete(ctx, user.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrUserNotFound", err)
	}
}

func TestMemoryUserRepository_DuplicateEmailCaseInsensitive(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, &model.User{Name: "A", Email: "ann@x.com"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	err := repo.Create(ctx, &model.User{Name: "B", Email: "ANN@x.com"})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("Create() error = %v, want ErrDuplicateEmail", err)
	}
}

func TestMemoryUserRepository_ConcurrentCreate(t *testing.T) {
	repo := NewMemoryUserRepository()
	const workers = 32

	var wg sync.WaitGroup
	var created, duplicates atomic.Int32
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.Create(context.Background(), &model.User{Name: fmt.Sprintf("u%d", i), Email: "race@x.com"})
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, ErrDuplicateEmail):
				duplicates.Add(1)
			default:
				t.Errorf("Create() unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if created.Load() != 1 {
		t.Errorf("created = %d, want exactly 1", created.Load())
	}
	if duplicates.Load() != workers-1 {
		t.Errorf("duplicates = %d, want %d", duplicates.Load(), workers-1)
	}
}

func TestMemoryUserRepository_CanceledContext(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := repo.GetByID(ctx, "u-1"); !errors.Is(err, context.Canceled) {
		t.Errorf("GetByID() error = %v, want context.Canceled", err)
	}
}

func TestMemoryTaskRepository_ListPaging(t *testing.T) {
	repo := NewMemoryTaskRepository()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		owner := "u-1"
		if i%2 == 1 {
			owner = "u-2"
		}
		if err := repo.Create(ctx, &model.Task{Title: fmt.Sprintf("t%d", i), CreatedBy: owner, Status: model.TaskPending}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	tests := []struct {
		name      string
		filter    model.TaskFilter
		wantLen   int
		wantTotal int
	}{
		{name: "all first page", filter: model.TaskFilter{Limit: 2}, wantLen: 2, wantTotal: 5},
		{name: "all last page", filter: model.TaskFilter{Offset: 4, Limit: 2}, wantLen: 1, wantTotal: 5},
		{name: "owner only", filter: model.TaskFilter{OwnerID: "u-1", Limit: 10}, wantLen: 3, wantTotal: 3},
		{name: "past the end", filter: model.TaskFilter{Offset: 10, Limit: 10}, wantLen: 0, wantTotal: 5},
		{name: "negative offset", filter: model.TaskFilter{Offset: -10, Limit: 10}, wantLen: 0, wantTotal: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, total, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(tasks) != tt.wantLen || total != tt.wantTotal {
				t.Errorf("List() = %d tasks, total %d; want %d, %d", len(tasks), total, tt.wantLen, tt.wantTotal)
			}
			for _, task := range tasks {
				if tt.filter.OwnerID != "" && task.CreatedBy != tt.filter.OwnerID {
					t.Errorf("task %s owned by %s leaked into %s listing", task.ID, task.CreatedBy, tt.filter.OwnerID)
				}
			}
		})
	}
}

func TestMemoryTaskRepository_UpdateKeepsOwner(t *testing.T) {
	repo := NewMemoryTaskRepository()
	ctx := context.Background()

	task := &model.Task{Title: "a", CreatedBy: "u-1", Status: model.TaskPending}
	if err := repo.Create(ctx, task); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	update := &model.Task{ID: task.ID, Title: "b", CreatedBy: "u-2", Status: model.TaskCompleted}
	if err := repo.Update(ctx, update); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.CreatedBy != "u-1" {
		t.Errorf("CreatedBy = %q, ownership must not change on update", got.CreatedBy)
	}
	if got.Title != "b" {
		t.Errorf("Title = %q, want %q", got.Title, "b")
	}

	if err := repo.Delete(ctx, "missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Delete() error = %v, want ErrTaskNotFound", err)
	}
}
