package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/wfm/task-system/internal/core/domain"
	"github.com/wfm/task-system/internal/core/ports"
	"github.com/wfm/task-system/internal/core/token"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// ── users ─────────────────────────────────────────────────────────────────────

type stubUserRepo struct {
	users         map[string]*domain.User
	conflictCalls int
	createErr     error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindConflicts(_ context.Context, username, email string) (bool, bool, error) {
	r.conflictCalls++
	var usernameTaken, emailTaken bool
	for _, u := range r.users {
		if u.Username == username {
			usernameTaken = true
		}
		if u.Email == email {
			emailTaken = true
		}
	}
	return usernameTaken, emailTaken, nil
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	if _, exists := r.users[user.Username]; exists {
		return domain.ErrDuplicateUsername
	}
	r.users[user.Username] = cloneUser(user)
	return nil
}

func (r *stubUserRepo) SetActive(_ context.Context, id string, active bool) error {
	for _, u := range r.users {
		if u.ID == id {
			u.Active = active
			return nil
		}
	}
	return domain.ErrUserNotFound
}

func (r *stubUserRepo) deactivate(username string) {
	r.users[username].Active = false
}

// ── password hashing ──────────────────────────────────────────────────────────

type countingHasher struct {
	*BcryptHasher
	verifies int
}

func (h *countingHasher) Verify(hash, plain string) bool {
	h.verifies++
	return h.BcryptHasher.Verify(hash, plain)
}

// ── audit ─────────────────────────────────────────────────────────────────────

type recordingAudit struct {
	events []domain.AuditEvent
}

func (a *recordingAudit) Record(e domain.AuditEvent) {
	a.events = append(a.events, e)
}

func (a *recordingAudit) kinds() []domain.AuditKind {
	out := make([]domain.AuditKind, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Kind)
	}
	return out
}

// ── projects, tasks, comments ─────────────────────────────────────────────────

type stubProjectRepo struct {
	items map[string]*domain.Project
}

func newStubProjectRepo() *stubProjectRepo {
	return &stubProjectRepo{items: make(map[string]*domain.Project)}
}

func (r *stubProjectRepo) Create(_ context.Context, p *domain.Project) error {
	c := *p
	r.items[p.ID] = &c
	return nil
}

func (r *stubProjectRepo) FindByID(_ context.Context, id string) (*domain.Project, error) {
	p, ok := r.items[id]
	if !ok {
		return nil, domain.ErrResourceNotFound
	}
	c := *p
	return &c, nil
}

func (r *stubProjectRepo) ListByOwner(_ context.Context, ownerID string) ([]*domain.Project, error) {
	var out []*domain.Project
	for _, p := range r.items {
		if p.OwnerID == ownerID {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *stubProjectRepo) SearchByName(_ context.Context, term string) ([]*domain.Project, error) {
	var out []*domain.Project
	for _, p := range r.items {
		if containsFold(p.Name, term) {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *stubProjectRepo) Update(_ context.Context, p *domain.Project) error {
	if _, ok := r.items[p.ID]; !ok {
		return domain.ErrResourceNotFound
	}
	c := *p
	r.items[p.ID] = &c
	return nil
}

func (r *stubProjectRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.items[id]; !ok {
		return domain.ErrResourceNotFound
	}
	delete(r.items, id)
	return nil
}

type stubTaskRepo struct {
	items map[string]*domain.Task
}

func newStubTaskRepo() *stubTaskRepo {
	return &stubTaskRepo{items: make(map[string]*domain.Task)}
}

func (r *stubTaskRepo) Create(_ context.Context, t *domain.Task) error {
	c := *t
	r.items[t.ID] = &c
	return nil
}

func (r *stubTaskRepo) FindByID(_ context.Context, id string) (*domain.Task, error) {
	t, ok := r.items[id]
	if !ok {
		return nil, domain.ErrResourceNotFound
	}
	c := *t
	return &c, nil
}

func (r *stubTaskRepo) ListByProject(_ context.Context, projectID string) ([]*domain.Task, error) {
	var out []*domain.Task
	for _, t := range r.items {
		if t.ProjectID == projectID {
			c := *t
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *stubTaskRepo) ListByProjectAndStatus(_ context.Context, projectID string, status domain.TaskStatus) ([]*domain.Task, error) {
	var out []*domain.Task
	for _, t := range r.items {
		if t.ProjectID == projectID && t.Status == status {
			c := *t
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *stubTaskRepo) Update(_ context.Context, t *domain.Task) error {
	if _, ok := r.items[t.ID]; !ok {
		return domain.ErrResourceNotFound
	}
	c := *t
	r.items[t.ID] = &c
	return nil
}

func (r *stubTaskRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.items[id]; !ok {
		return domain.ErrResourceNotFound
	}
	delete(r.items, id)
	return nil
}

type stubCommentRepo struct {
	items map[string]*domain.Comment
}

func newStubCommentRepo() *stubCommentRepo {
	return &stubCommentRepo{items: make(map[string]*domain.Comment)}
}

func (r *stubCommentRepo) Create(_ context.Context, c *domain.Comment) error {
	cp := *c
	r.items[c.ID] = &cp
	return nil
}

func (r *stubCommentRepo) FindByID(_ context.Context, id string) (*domain.Comment, error) {
	c, ok := r.items[id]
	if !ok {
		return nil, domain.ErrResourceNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *stubCommentRepo) ListByTask(_ context.Context, taskID string) ([]*domain.Comment, error) {
	var out []*domain.Comment
	for _, c := range r.items {
		if c.TaskID == taskID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *stubCommentRepo) Delete(_ context.Context, id string) error {
	delete(r.items, id)
	return nil
}

// ── fixtures ──────────────────────────────────────────────────────────────────

type authFixture struct {
	svc    *AuthService
	users  *stubUserRepo
	hasher *countingHasher
	tokens *TokenService
	audit  *recordingAudit
	clock  *fakeClock
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	clock := &fakeClock{now: epoch}
	codec, err := token.NewCodec(token.Key{ID: "test", Secret: []byte(testSecret)}, token.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	f := &authFixture{
		users:  newStubUserRepo(),
		hasher: &countingHasher{BcryptHasher: NewBcryptHasher(bcrypt.MinCost)},
		tokens: NewTokenService(codec, time.Hour, 7*24*time.Hour),
		audit:  &recordingAudit{},
		clock:  clock,
	}
	f.svc = NewAuthService(f.users, f.hasher, f.tokens, f.audit, zerolog.Nop())
	return f
}

func (f *authFixture) register(t *testing.T, username, password string, role domain.Role) *domain.User {
	t.Helper()
	_, err := f.svc.Register(context.Background(), ports.RegisterInput{
		Username: username,
		Password: password,
		FullName: username,
		Email:    username + "@example.com",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	u, _ := f.users.FindByUsername(context.Background(), username)
	return u
}

func principalOf(u *domain.User) domain.Principal {
	return domain.Principal{ID: u.ID, Username: u.Username, Role: u.Role}
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
