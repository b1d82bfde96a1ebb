package ports

import (
	"context"

	"github.com/wfm/task-system/internal/core/domain"
)

// ProjectRepository defines persistence operations for projects.
type ProjectRepository interface {
	Create(ctx context.Context, p *domain.Project) error
	// FindByID returns domain.ErrResourceNotFound when no project matches.
	FindByID(ctx context.Context, id string) (*domain.Project, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Project, error)
	// SearchByName matches a case-insensitive substring of the name.
	SearchByName(ctx context.Context, term string) ([]*domain.Project, error)
	Update(ctx context.Context, p *domain.Project) error
	Delete(ctx context.Context, id string) error
}

// CreateProjectInput carries the fields of a new project.
type CreateProjectInput struct {
	Name        string
	Description string
}

// UpdateProjectInput holds optional replacements; nil leaves a field as is.
type UpdateProjectInput struct {
	Name        *string
	Description *string
}

// ProjectService defines project use cases. Mutations are checked against
// the project owner.
type ProjectService interface {
	Create(ctx context.Context, actor domain.Principal, in CreateProjectInput) (*domain.Project, error)
	Get(ctx context.Context, id string) (*domain.Project, error)
	ListMine(ctx context.Context, actor domain.Principal) ([]*domain.Project, error)
	Search(ctx context.Context, term string) ([]*domain.Project, error)
	Update(ctx context.Context, actor domain.Principal, id string, in UpdateProjectInput) (*domain.Project, error)
	Delete(ctx context.Context, actor domain.Principal, id string) error
}
