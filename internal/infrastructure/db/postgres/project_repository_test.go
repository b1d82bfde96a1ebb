package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfm/task-system/internal/core/domain"
)

func sampleProject(id, name string) *domain.Project {
	return &domain.Project{
		ID:          id,
		Name:        name,
		Description: "desc",
		OwnerID:     "u-1",
		CreatedAt:   epoch,
		UpdatedAt:   epoch,
	}
}

func projectRows(ps ...*domain.Project) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"id", "name", "description", "owner_id", "created_at", "updated_at"})
	for _, p := range ps {
		rows.AddRow(p.ID, p.Name, p.Description, p.OwnerID, p.CreatedAt, p.UpdatedAt)
	}
	return rows
}

func TestProjectRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewProjectRepository(mock)
	p := sampleProject("p-1", "Alpha")

	mock.ExpectExec("INSERT INTO projects").
		WithArgs(p.ID, p.Name, p.Description, p.OwnerID, p.CreatedAt, p.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepository_FindByID(t *testing.T) {
	mock := newMock(t)
	repo := NewProjectRepository(mock)
	p := sampleProject("p-1", "Alpha")

	mock.ExpectQuery("SELECT .+ FROM projects WHERE id =").
		WithArgs("p-1").
		WillReturnRows(projectRows(p))

	got, err := repo.FindByID(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestProjectRepository_FindByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewProjectRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM projects WHERE id =").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrResourceNotFound), "got %v", err)
}

func TestProjectRepository_ListByOwner(t *testing.T) {
	mock := newMock(t)
	repo := NewProjectRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM projects WHERE owner_id =").
		WithArgs("u-1").
		WillReturnRows(projectRows(sampleProject("p-2", "Beta"), sampleProject("p-1", "Alpha")))

	got, err := repo.ListByOwner(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p-2", got[0].ID)
}

func TestProjectRepository_ListByOwner_Empty(t *testing.T) {
	mock := newMock(t)
	repo := NewProjectRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM projects WHERE owner_id =").
		WithArgs("u-9").
		WillReturnRows(projectRows())

	got, err := repo.ListByOwner(context.Background(), "u-9")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestProjectRepository_SearchByName_UsesEscapedPattern(t *testing.T) {
	mock := newMock(t)
	repo := NewProjectRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM projects WHERE name ILIKE").
		WithArgs(`%al\%%`).
		WillReturnRows(projectRows(sampleProject("p-1", "Al%pha")))

	got, err := repo.SearchByName(context.Background(), "al%")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepository_Update(t *testing.T) {
	mock := newMock(t)
	repo := NewProjectRepository(mock)
	p := sampleProject("p-1", "Renamed")

	mock.ExpectExec("UPDATE projects SET").
		WithArgs(p.Name, p.Description, p.UpdatedAt, p.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.Update(context.Background(), p))
}

func TestProjectRepository_Update_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewProjectRepository(mock)
	p := sampleProject("gone", "Renamed")

	mock.ExpectExec("UPDATE projects SET").
		WithArgs(p.Name, p.Description, p.UpdatedAt, p.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), p)
	assert.True(t, errors.Is(err, domain.ErrResourceNotFound), "got %v", err)
}

func TestProjectRepository_Delete(t *testing.T) {
	mock := newMock(t)
	repo := NewProjectRepository(mock)

	mock.ExpectExec("DELETE FROM projects WHERE id =").
		WithArgs("p-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM projects WHERE id =").
		WithArgs("p-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, repo.Delete(context.Background(), "p-1"))
	err := repo.Delete(context.Background(), "p-1")
	assert.True(t, errors.Is(err, domain.ErrResourceNotFound), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
