package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wfm/task-system/internal/core/domain"
	"github.com/wfm/task-system/internal/core/ports"
)

type CommentService struct {
	comments ports.CommentRepository
	tasks    ports.TaskRepository
	guard    guard
	logger   zerolog.Logger
}

func NewCommentService(comments ports.CommentRepository, tasks ports.TaskRepository, audit ports.AuditRecorder, logger zerolog.Logger) *CommentService {
	return &CommentService{comments: comments, tasks: tasks, guard: guard{audit: audit, log: logger}, logger: logger}
}

// Add attaches a comment authored by actor to an existing task.
func (s *CommentService) Add(ctx context.Context, actor domain.Principal, taskID, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: comment content is required", domain.ErrValidation)
	}
	if _, err := s.tasks.FindByID(ctx, taskID); err != nil {
		return nil, err
	}

	c := &domain.Comment{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		AuthorID:  actor.ID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CommentService) ListByTask(ctx context.Context, taskID string) ([]*domain.Comment, error) {
	if _, err := s.tasks.FindByID(ctx, taskID); err != nil {
		return nil, err
	}
	return s.comments.ListByTask(ctx, taskID)
}

// Delete removes a comment. Only its author or an admin may delete it.
func (s *CommentService) Delete(ctx context.Context, actor domain.Principal, id string) error {
	c, err := s.comments.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guard.check(actor, "comment", c.ID, c.AuthorID); err != nil {
		return err
	}
	return s.comments.Delete(ctx, c.ID)
}
