package ports

import (
	"context"
	"time"

	"github.com/wfm/task-system/internal/core/domain"
)

// TaskRepository defines persistence operations for tasks.
type TaskRepository interface {
	Create(ctx context.Context, t *domain.Task) error
	FindByID(ctx context.Context, id string) (*domain.Task, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.Task, error)
	ListByProjectAndStatus(ctx context.Context, projectID string, status domain.TaskStatus) ([]*domain.Task, error)
	Update(ctx context.Context, t *domain.Task) error
	// Delete removes the task and its comments.
	Delete(ctx context.Context, id string) error
}

// CreateTaskInput carries the fields of a new task. Empty Status and
// Priority take the defaults TODO and MEDIUM.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      domain.TaskStatus
	Priority    domain.TaskPriority
	DueDate     *time.Time
}

// UpdateTaskInput is a partial update: nil fields keep their current value.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *domain.TaskStatus
	Priority    *domain.TaskPriority
	DueDate     *time.Time
}

type TaskService interface {
	Create(ctx context.Context, actor domain.Principal, projectID string, in CreateTaskInput) (*domain.Task, error)
	Get(ctx context.Context, id string) (*domain.Task, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.Task, error)
	ListByProjectAndStatus(ctx context.Context, projectID string, status domain.TaskStatus) ([]*domain.Task, error)
	Update(ctx context.Context, actor domain.Principal, id string, in UpdateTaskInput) (*domain.Task, error)
	Delete(ctx context.Context, actor domain.Principal, id string) error
}
