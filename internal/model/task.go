package model

import "time"

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in-progress"
	TaskCompleted  TaskStatus = "completed"
)

// IsValid reports whether s is a known status.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted:
		return true
	default:
		return false
	}
}

// Task represents a task in the database. CreatedBy is the owning user id.
type Task struct {
	ID          string
	Title       string
	Description string
	Status      TaskStatus
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskRequest is the body of create and update requests. Nil fields are left
// unchanged on update.
type TaskRequest struct {
	Title       *string     `json:"title"`
	Description *string     `json:"description"`
	Status      *TaskStatus `json:"status"`
}

// TaskResponse represents a task in API responses.
type TaskResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TaskPage is a single page of tasks plus paging metadata.
type TaskPage struct {
	Tasks       []TaskResponse `json:"tasks"`
	CurrentPage int            `json:"currentPage"`
	TotalPages  int            `json:"totalPages"`
	TotalTasks  int            `json:"totalTasks"`
	HasNextPage bool           `json:"hasNextPage"`
	HasPrevPage bool           `json:"hasPrevPage"`
}

// TaskFilter restricts a listing. An empty OwnerID means all tasks.
type TaskFilter struct {
	OwnerID string
	Offset  int
	Limit   int
}
