package ports

import (
	"context"

	"github.com/wfm/task-system/internal/core/domain"
)

// CommentRepository defines persistence operations for task comments.
type CommentRepository interface {
	Create(ctx context.Context, c *domain.Comment) error
	FindByID(ctx context.Context, id string) (*domain.Comment, error)
	ListByTask(ctx context.Context, taskID string) ([]*domain.Comment, error)
	Delete(ctx context.Context, id string) error
}

type CommentService interface {
	Add(ctx context.Context, actor domain.Principal, taskID, content string) (*domain.Comment, error)
	ListByTask(ctx context.Context, taskID string) ([]*domain.Comment, error)
	Delete(ctx context.Context, actor domain.Principal, id string) error
}
