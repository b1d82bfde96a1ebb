package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wfm/task-system/internal/core/domain"
	"github.com/wfm/task-system/internal/core/ports"
)

var (
	alice = domain.Principal{ID: "u-alice", Username: "alice", Role: domain.RoleUser}
	bob   = domain.Principal{ID: "u-bob", Username: "bob", Role: domain.RoleUser}
	admin = domain.Principal{ID: "u-admin", Username: "admin", Role: domain.RoleAdmin}
)

func strPtr(s string) *string { return &s }

func TestProjectService_CreateSetsOwner(t *testing.T) {
	repo := newStubProjectRepo()
	svc := NewProjectService(repo, nil, zerolog.Nop())

	p, err := svc.Create(context.Background(), alice, ports.CreateProjectInput{Name: "  Launch  ", Description: "q3"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.OwnerID != alice.ID {
		t.Fatalf("owner = %q, want %q", p.OwnerID, alice.ID)
	}
	if p.Name != "Launch" {
		t.Fatalf("name should be trimmed, got %q", p.Name)
	}
	if p.ID == "" || p.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamps, got %+v", p)
	}

	if _, err := svc.Create(context.Background(), alice, ports.CreateProjectInput{Name: " "}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for blank name, got %v", err)
	}
}

func TestProjectService_DeleteOwnership(t *testing.T) {
	audit := &recordingAudit{}
	svc := NewProjectService(newStubProjectRepo(), audit, zerolog.Nop())
	ctx := context.Background()

	p, _ := svc.Create(ctx, alice, ports.CreateProjectInput{Name: "alpha"})

	if err := svc.Delete(ctx, bob, p.ID); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("non-owner delete: expected ErrAccessDenied, got %v", err)
	}
	if len(audit.events) != 1 || audit.events[0].Kind != domain.AuditAccessDenied {
		t.Fatalf("expected one access_denied audit event, got %+v", audit.events)
	}
	if audit.events[0].Resource != "project:"+p.ID || audit.events[0].Username != "bob" {
		t.Fatalf("unexpected audit event: %+v", audit.events[0])
	}

	if err := svc.Delete(ctx, admin, p.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, err := svc.Get(ctx, p.ID); !errors.Is(err, domain.ErrResourceNotFound) {
		t.Fatalf("expected project gone, got %v", err)
	}
}

func TestProjectService_OwnerMayDelete(t *testing.T) {
	svc := NewProjectService(newStubProjectRepo(), nil, zerolog.Nop())
	ctx := context.Background()

	p, _ := svc.Create(ctx, alice, ports.CreateProjectInput{Name: "alpha"})
	if err := svc.Delete(ctx, alice, p.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
}

func TestProjectService_MissingBeforeDenied(t *testing.T) {
	svc := NewProjectService(newStubProjectRepo(), nil, zerolog.Nop())

	if err := svc.Delete(context.Background(), bob, "nope"); !errors.Is(err, domain.ErrResourceNotFound) {
		t.Fatalf("expected ErrResourceNotFound, got %v", err)
	}
	if _, err := svc.Update(context.Background(), bob, "nope", ports.UpdateProjectInput{Name: strPtr("x")}); !errors.Is(err, domain.ErrResourceNotFound) {
		t.Fatalf("expected ErrResourceNotFound, got %v", err)
	}
}

func TestProjectService_Update(t *testing.T) {
	svc := NewProjectService(newStubProjectRepo(), nil, zerolog.Nop())
	ctx := context.Background()
	p, _ := svc.Create(ctx, alice, ports.CreateProjectInput{Name: "alpha", Description: "first"})

	if _, err := svc.Update(ctx, bob, p.ID, ports.UpdateProjectInput{Name: strPtr("hijacked")}); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}

	updated, err := svc.Update(ctx, alice, p.ID, ports.UpdateProjectInput{Description: strPtr("second")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "alpha" || updated.Description != "second" {
		t.Fatalf("unexpected project: %+v", updated)
	}
	if updated.OwnerID != alice.ID {
		t.Fatalf("ownership must not change on update")
	}

	if _, err := svc.Update(ctx, admin, p.ID, ports.UpdateProjectInput{Name: strPtr("")}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty name, got %v", err)
	}
}

func TestProjectService_ListAndSearch(t *testing.T) {
	svc := NewProjectService(newStubProjectRepo(), nil, zerolog.Nop())
	ctx := context.Background()
	_, _ = svc.Create(ctx, alice, ports.CreateProjectInput{Name: "Website Redesign"})
	_, _ = svc.Create(ctx, alice, ports.CreateProjectInput{Name: "Payroll"})
	_, _ = svc.Create(ctx, bob, ports.CreateProjectInput{Name: "Mobile website"})

	mine, err := svc.ListMine(ctx, alice)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 projects for alice, got %d", len(mine))
	}

	found, err := svc.Search(ctx, "WEBSITE")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(found))
	}

	if _, err := svc.Search(ctx, "  "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for blank term, got %v", err)
	}
}
