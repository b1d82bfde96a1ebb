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

type ProjectService struct {
	repo   ports.ProjectRepository
	guard  guard
	logger zerolog.Logger
}

func NewProjectService(repo ports.ProjectRepository, audit ports.AuditRecorder, logger zerolog.Logger) *ProjectService {
	return &ProjectService{repo: repo, guard: guard{audit: audit, log: logger}, logger: logger}
}

// Create stores a new project owned by actor.
func (s *ProjectService) Create(ctx context.Context, actor domain.Principal, in ports.CreateProjectInput) (*domain.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", domain.ErrValidation)
	}

	now := time.Now().UTC()
	p := &domain.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: in.Description,
		OwnerID:     actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		s.logger.Error().Err(err).Msg("failed to create project")
		return nil, err
	}

	s.logger.Info().Str("project_id", p.ID).Str("owner", actor.Username).Msg("project created")
	return p, nil
}

func (s *ProjectService) Get(ctx context.Context, id string) (*domain.Project, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *ProjectService) ListMine(ctx context.Context, actor domain.Principal) ([]*domain.Project, error) {
	return s.repo.ListByOwner(ctx, actor.ID)
}

func (s *ProjectService) Search(ctx context.Context, term string) ([]*domain.Project, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("%w: search term is required", domain.ErrValidation)
	}
	return s.repo.SearchByName(ctx, term)
}

// Update replaces the name and/or description. Only the owner or an admin
// may update a project.
func (s *ProjectService) Update(ctx context.Context, actor domain.Principal, id string, in ports.UpdateProjectInput) (*domain.Project, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.check(actor, "project", p.ID, p.OwnerID); err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: project name cannot be empty", domain.ErrValidation)
		}
		p.Name = name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	p.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a project. Only the owner or an admin may delete it.
func (s *ProjectService) Delete(ctx context.Context, actor domain.Principal, id string) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guard.check(actor, "project", p.ID, p.OwnerID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, p.ID); err != nil {
		return err
	}

	s.logger.Info().Str("project_id", p.ID).Str("by", actor.Username).Msg("project deleted")
	return nil
}
