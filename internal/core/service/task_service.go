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

type TaskService struct {
	tasks    ports.TaskRepository
	projects ports.ProjectRepository
	guard    guard
	logger   zerolog.Logger
}

func NewTaskService(tasks ports.TaskRepository, projects ports.ProjectRepository, audit ports.AuditRecorder, logger zerolog.Logger) *TaskService {
	return &TaskService{tasks: tasks, projects: projects, guard: guard{audit: audit, log: logger}, logger: logger}
}

// Create adds a task to a project. Only the project owner or an admin may
// add tasks.
func (s *TaskService) Create(ctx context.Context, actor domain.Principal, projectID string, in ports.CreateTaskInput) (*domain.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: task title is required", domain.ErrValidation)
	}
	status := in.Status
	if status == "" {
		status = domain.TaskTodo
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, in.Status)
	}
	priority := in.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", domain.ErrValidation, in.Priority)
	}

	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.check(actor, "project", project.ID, project.OwnerID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := &domain.Task{
		ID:          uuid.NewString(),
		ProjectID:   project.ID,
		Title:       title,
		Description: in.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tasks.Create(ctx, t); err != nil {
		s.logger.Error().Err(err).Msg("failed to create task")
		return nil, err
	}

	s.logger.Info().Str("task_id", t.ID).Str("project_id", project.ID).Msg("task created")
	return t, nil
}

func (s *TaskService) Get(ctx context.Context, id string) (*domain.Task, error) {
	return s.tasks.FindByID(ctx, id)
}

// ListByProject returns the tasks of an existing project.
func (s *TaskService) ListByProject(ctx context.Context, projectID string) ([]*domain.Task, error) {
	if _, err := s.projects.FindByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.tasks.ListByProject(ctx, projectID)
}

// ListByProjectAndStatus returns the tasks of an existing project that are in
// the given status.
func (s *TaskService) ListByProjectAndStatus(ctx context.Context, projectID string, status domain.TaskStatus) ([]*domain.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
	}
	if _, err := s.projects.FindByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.tasks.ListByProjectAndStatus(ctx, projectID, status)
}

// Update applies a partial update to a task. Only the owner of the task's
// project or an admin may change it.
func (s *TaskService) Update(ctx context.Context, actor domain.Principal, id string, in ports.UpdateTaskInput) (*domain.Task, error) {
	t, err := s.authorizeTask(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: task title is required", domain.ErrValidation)
		}
		t.Title = title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, *in.Status)
		}
		t.Status = *in.Status
	}
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return nil, fmt.Errorf("%w: unknown priority %q", domain.ErrValidation, *in.Priority)
		}
		t.Priority = *in.Priority
	}
	if in.DueDate != nil {
		d := *in.DueDate
		t.DueDate = &d
	}
	t.UpdatedAt = time.Now().UTC()

	if err := s.tasks.Update(ctx, t); err != nil {
		s.logger.Error().Err(err).Str("task_id", id).Msg("failed to update task")
		return nil, err
	}

	s.logger.Info().Str("task_id", id).Msg("task updated")
	return t, nil
}

// Delete removes a task and its comments. Only the owner of the task's
// project or an admin may delete it.
func (s *TaskService) Delete(ctx context.Context, actor domain.Principal, id string) error {
	if _, err := s.authorizeTask(ctx, actor, id); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("task_id", id).Msg("failed to delete task")
		return err
	}

	s.logger.Info().Str("task_id", id).Msg("task deleted")
	return nil
}

// authorizeTask loads the task and checks actor against the owner of its
// project. Missing task or project yields domain.ErrResourceNotFound before
// any policy decision.
func (s *TaskService) authorizeTask(ctx context.Context, actor domain.Principal, id string) (*domain.Task, error) {
	t, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	project, err := s.projects.FindByID(ctx, t.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.check(actor, "task", t.ID, project.OwnerID); err != nil {
		return nil, err
	}
	return t, nil
}
