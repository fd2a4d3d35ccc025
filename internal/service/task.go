package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/tasklist/tasklist-go/internal/model"
	"github.com/tasklist/tasklist-go/internal/repository"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	// MaxTitleLength is the width of tasks.title, in characters.
	MaxTitleLength = 255
)

// TaskStore persists tasks.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id string) (*model.Task, error)
	List(ctx context.Context, filter model.TaskFilter) ([]model.Task, int, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id string) error
}

// TaskService applies the authorization rules to task operations.
type TaskService struct {
	repo TaskStore
}

// NewTaskService creates a new TaskService.
func NewTaskService(repo TaskStore) *TaskService {
	return &TaskService{repo: repo}
}

// List returns one page of the tasks visible to the caller: everything for
// admins, own tasks otherwise.
func (s *TaskService) List(ctx context.Context, id model.Identity, page, limit int) (model.TaskPage, error) {
	if id.User.ID == "" {
		return model.TaskPage{}, ErrUnauthenticated
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	// Keeps (page-1)*limit from overflowing into a negative offset.
	if page > math.MaxInt/limit {
		page = math.MaxInt / limit
	}

	filter := model.TaskFilter{Offset: (page - 1) * limit, Limit: limit}
	if !id.IsAdmin() {
		filter.OwnerID = id.User.ID
	}

	tasks, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return model.TaskPage{}, transient("listing tasks", err)
	}

	totalPages := (total + limit - 1) / limit
	return model.TaskPage{
		Tasks:       tasksToResponse(tasks),
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalTasks:  total,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}, nil
}

// Get returns a task the caller owns, or any task for admins.
func (s *TaskService) Get(ctx context.Context, id model.Identity, taskID string) (model.TaskResponse, error) {
	task, err := s.load(ctx, id, taskID)
	if err != nil {
		return model.TaskResponse{}, err
	}
	return taskToResponse(*task), nil
}

// Create adds a task owned by the caller.
func (s *TaskService) Create(ctx context.Context, id model.Identity, req model.TaskRequest) (model.TaskResponse, error) {
	if id.User.ID == "" {
		return model.TaskResponse{}, ErrUnauthenticated
	}

	task := model.Task{Status: model.TaskPending, CreatedBy: id.User.ID}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		return model.TaskResponse{}, ErrTitleRequired
	}
	if err := applyTaskRequest(&task, req); err != nil {
		return model.TaskResponse{}, err
	}

	if err := s.repo.Create(ctx, &task); err != nil {
		return model.TaskResponse{}, transient("creating task", err)
	}
	return taskToResponse(task), nil
}

// Update applies a partial update to a task the caller owns, or any task for
// admins.
func (s *TaskService) Update(ctx context.Context, id model.Identity, taskID string, req model.TaskRequest) (model.TaskResponse, error) {
	task, err := s.load(ctx, id, taskID)
	if err != nil {
		return model.TaskResponse{}, err
	}

	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return model.TaskResponse{}, ErrTitleRequired
	}
	if err := applyTaskRequest(task, req); err != nil {
		return model.TaskResponse{}, err
	}

	if err := s.repo.Update(ctx, task); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return model.TaskResponse{}, ErrNotFound
		}
		return model.TaskResponse{}, transient("updating task", err)
	}
	return taskToResponse(*task), nil
}

// Delete removes a task. Deletion is admin-only, even for the creator; the
// role check runs before the task is looked up.
func (s *TaskService) Delete(ctx context.Context, id model.Identity, taskID string) error {
	if err := RequireAdmin(id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, taskID); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return ErrNotFound
		}
		return transient("deleting task", err)
	}
	return nil
}

// load fetches a task and runs the ownership check, reporting a missing task
// before any authorization decision.
func (s *TaskService) load(ctx context.Context, id model.Identity, taskID string) (*model.Task, error) {
	if id.User.ID == "" {
		return nil, ErrUnauthenticated
	}

	task, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrNotFound
		}
		return nil, transient("loading task", err)
	}

	if err := CheckOwnership(id, task.CreatedBy); err != nil {
		return nil, err
	}
	return task, nil
}

func applyTaskRequest(task *model.Task, req model.TaskRequest) error {
	if req.Status != nil {
		if !req.Status.IsValid() {
			return ErrStatusInvalid
		}
		task.Status = *req.Status
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if utf8.RuneCountInString(title) > MaxTitleLength {
			return ErrTitleTooLong
		}
		task.Title = title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	return nil
}

func taskToResponse(t model.Task) model.TaskResponse {
	return model.TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// tasksToResponse never returns nil so empty pages encode as [].
func tasksToResponse(tasks []model.Task) []model.TaskResponse {
	result := make([]model.TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = taskToResponse(t)
	}
	return result
}
