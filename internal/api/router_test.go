package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/wfm/task-system/internal/api/handler"
	"github.com/wfm/task-system/internal/core/domain"
	"github.com/wfm/task-system/internal/core/service"
	"github.com/wfm/task-system/internal/core/token"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// ── in-memory repositories ────────────────────────────────────────────────────

type memUsers struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (m *memUsers) FindConflicts(_ context.Context, username, email string) (bool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ut, et bool
	for _, u := range m.users {
		ut = ut || u.Username == username
		et = et || u.Email == email
	}
	return ut, et, nil
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = *u
	return nil
}

func (m *memUsers) SetActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Active = active
	m.users[id] = u
	return nil
}

type memProjects struct {
	mu       sync.Mutex
	projects map[string]domain.Project
}

func (m *memProjects) Create(_ context.Context, p *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = *p
	return nil
}

func (m *memProjects) FindByID(_ context.Context, id string) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, domain.ErrResourceNotFound
	}
	return &p, nil
}

func (m *memProjects) ListByOwner(_ context.Context, ownerID string) ([]*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Project, 0)
	for _, p := range m.projects {
		if p.OwnerID == ownerID {
			p := p
			out = append(out, &p)
		}
	}
	return out, nil
}

func (m *memProjects) SearchByName(_ context.Context, term string) ([]*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Project, 0)
	for _, p := range m.projects {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(term)) {
			p := p
			out = append(out, &p)
		}
	}
	return out, nil
}

func (m *memProjects) Update(_ context.Context, p *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.ID]; !ok {
		return domain.ErrResourceNotFound
	}
	m.projects[p.ID] = *p
	return nil
}

func (m *memProjects) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return domain.ErrResourceNotFound
	}
	delete(m.projects, id)
	return nil
}

type memTasks struct {
	mu    sync.Mutex
	tasks map[string]domain.Task
}

func (m *memTasks) Create(_ context.Context, t *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = *t
	return nil
}

func (m *memTasks) FindByID(_ context.Context, id string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, domain.ErrResourceNotFound
	}
	return &t, nil
}

func (m *memTasks) ListByProject(_ context.Context, projectID string) ([]*domain.Task, error) {
	return m.filter(func(t domain.Task) bool { return t.ProjectID == projectID }), nil
}

func (m *memTasks) ListByProjectAndStatus(_ context.Context, projectID string, status domain.TaskStatus) ([]*domain.Task, error) {
	return m.filter(func(t domain.Task) bool { return t.ProjectID == projectID && t.Status == status }), nil
}

func (m *memTasks) Update(_ context.Context, t *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.ID]; !ok {
		return domain.ErrResourceNotFound
	}
	m.tasks[t.ID] = *t
	return nil
}

func (m *memTasks) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return domain.ErrResourceNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *memTasks) filter(keep func(domain.Task) bool) []*domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Task, 0)
	for _, t := range m.tasks {
		if keep(t) {
			t := t
			out = append(out, &t)
		}
	}
	return out
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return false, 1500 * time.Millisecond, nil
}

// ── harness ───────────────────────────────────────────────────────────────────

type testServer struct {
	t     *testing.T
	srv   http.Handler
	users *memUsers
}

func newTestServer(t *testing.T, deps func(*Deps)) *testServer {
	t.Helper()
	codec, err := token.NewCodec(token.Key{Secret: []byte(testSecret)})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	users := &memUsers{users: make(map[string]domain.User)}
	projects := &memProjects{projects: make(map[string]domain.Project)}
	tasks := &memTasks{tasks: make(map[string]domain.Task)}
	log := zerolog.Nop()

	tokens := service.NewTokenService(codec, time.Hour, 24*time.Hour)
	auth := service.NewAuthService(users, service.NewBcryptHasher(bcrypt.MinCost), tokens, nil, log)

	d := Deps{
		Auth:      auth,
		Users:     service.NewUserService(users, log),
		Projects:  service.NewProjectService(projects, nil, log),
		Tasks:     service.NewTaskService(tasks, projects, nil, log),
		Readiness: map[string]handler.Pinger{"store": handler.PingFunc(func(context.Context) error { return nil })},
		Logger:    log,
	}
	if deps != nil {
		deps(&d)
	}
	return &testServer{t: t, srv: NewRouter(d), users: users}
}

func (s *testServer) do(method, path, bearer, body string) (*httptest.ResponseRecorder, map[string]any) {
	s.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.srv.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func (s *testServer) register(username string) (access, refresh string) {
	s.t.Helper()
	rec, body := s.do(http.MethodPost, "/auth/register", "",
		`{"username":"`+username+`","password":"pw1234","fullName":"`+username+`","email":"`+username+`@example.com"}`)
	if rec.Code != http.StatusOK {
		s.t.Fatalf("register %s: %d %s", username, rec.Code, rec.Body.String())
	}
	return body["accessToken"].(string), body["refreshToken"].(string)
}

// ── tests ─────────────────────────────────────────────────────────────────────

func TestRouter_OwnershipScenario(t *testing.T) {
	s := newTestServer(t, nil)
	aliceToken, _ := s.register("alice")
	bobToken, _ := s.register("bob")

	rec, project := s.do(http.MethodPost, "/api/projects", aliceToken, `{"name":"Alpha","description":"first"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create project: %d %s", rec.Code, rec.Body.String())
	}
	id := project["id"].(string)

	rec, _ = s.do(http.MethodGet, "/api/projects/"+id, bobToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("bob read: expected 200, got %d", rec.Code)
	}

	rec, body := s.do(http.MethodPut, "/api/projects/"+id, bobToken, `{"name":"Hijacked"}`)
	if rec.Code != http.StatusForbidden || body["error"] != "access denied" {
		t.Fatalf("bob update: expected 403 access denied, got %d %v", rec.Code, body)
	}

	rec, _ = s.do(http.MethodDelete, "/api/projects/"+id, bobToken, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("bob delete: expected 403, got %d", rec.Code)
	}

	rec, body = s.do(http.MethodPut, "/api/projects/"+id, aliceToken, `{"name":"Alpha v2"}`)
	if rec.Code != http.StatusOK || body["name"] != "Alpha v2" {
		t.Fatalf("alice update: %d %v", rec.Code, body)
	}

	rec, _ = s.do(http.MethodDelete, "/api/projects/"+id, aliceToken, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("alice delete: expected 204, got %d", rec.Code)
	}

	rec, _ = s.do(http.MethodGet, "/api/projects/"+id, aliceToken, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("deleted project: expected 404, got %d", rec.Code)
	}
}

func TestRouter_TaskMutationsRequireProjectOwnership(t *testing.T) {
	s := newTestServer(t, nil)
	aliceToken, _ := s.register("alice")
	bobToken, _ := s.register("bob")

	_, project := s.do(http.MethodPost, "/api/projects", aliceToken, `{"name":"Alpha"}`)
	projectID := project["id"].(string)

	rec, task := s.do(http.MethodPost, "/api/tasks", aliceToken, `{"projectId":"`+projectID+`","title":"draft"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create task: %d %s", rec.Code, rec.Body.String())
	}
	taskID := task["id"].(string)

	rec, _ = s.do(http.MethodPatch, "/api/tasks/"+taskID, bobToken, `{"status":"DONE"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("bob patch: expected 403, got %d", rec.Code)
	}
	rec, _ = s.do(http.MethodDelete, "/api/tasks/"+taskID, bobToken, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("bob delete: expected 403, got %d", rec.Code)
	}

	rec, body := s.do(http.MethodPatch, "/api/tasks/"+taskID, aliceToken, `{"status":"DONE"}`)
	if rec.Code != http.StatusOK || body["status"] != "DONE" || body["title"] != "draft" {
		t.Fatalf("alice patch: %d %v", rec.Code, body)
	}

	rec, _ = s.do(http.MethodGet, "/api/tasks/project/"+projectID+"/status/DONE", bobToken, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), taskID) {
		t.Fatalf("status listing: %d %s", rec.Code, rec.Body.String())
	}
	rec, _ = s.do(http.MethodGet, "/api/tasks/project/"+projectID+"/status/BLOCKED", bobToken, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown status: expected 400, got %d", rec.Code)
	}

	rec, _ = s.do(http.MethodDelete, "/api/tasks/"+taskID, aliceToken, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("alice delete: expected 204, got %d", rec.Code)
	}
	rec, _ = s.do(http.MethodGet, "/api/tasks/"+taskID, aliceToken, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("deleted task: expected 404, got %d", rec.Code)
	}
}

func TestRouter_RequiresBearerToken(t *testing.T) {
	s := newTestServer(t, nil)

	rec, _ := s.do(http.MethodGet, "/api/projects/my", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", rec.Code)
	}

	rec, _ = s.do(http.MethodGet, "/api/projects/my", "not-a-jwt", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: expected 401, got %d", rec.Code)
	}

	_, refresh := s.register("carol")
	rec, _ = s.do(http.MethodGet, "/api/projects/my", refresh, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh token as bearer: expected 401, got %d", rec.Code)
	}
}

func TestRouter_RefreshRejectsAccessToken(t *testing.T) {
	s := newTestServer(t, nil)
	access, refresh := s.register("dave")

	rec, body := s.do(http.MethodPost, "/auth/refresh-token", "", `{"refreshToken":"`+access+`"}`)
	if rec.Code != http.StatusBadRequest || body["error"] != "invalid refresh token" {
		t.Fatalf("expected 400 invalid refresh token, got %d %v", rec.Code, body)
	}

	rec, body = s.do(http.MethodPost, "/auth/refresh-token", "", `{"refreshToken":"`+refresh+`"}`)
	if rec.Code != http.StatusOK || body["tokenType"] != "Bearer" {
		t.Fatalf("refresh: %d %v", rec.Code, body)
	}
}

func TestRouter_LoginFailuresAreUniform(t *testing.T) {
	s := newTestServer(t, nil)
	s.register("erin")

	recWrong, wrong := s.do(http.MethodPost, "/auth/login", "", `{"username":"erin","password":"nope"}`)
	recUnknown, unknown := s.do(http.MethodPost, "/auth/login", "", `{"username":"ghost","password":"nope"}`)

	if recWrong.Code != http.StatusBadRequest || recUnknown.Code != http.StatusBadRequest {
		t.Fatalf("expected 400/400, got %d/%d", recWrong.Code, recUnknown.Code)
	}
	if wrong["error"] != unknown["error"] {
		t.Fatalf("bodies differ: %v vs %v", wrong, unknown)
	}
}

func TestRouter_DeactivatedUserIsLockedOut(t *testing.T) {
	s := newTestServer(t, nil)
	access, _ := s.register("frank")

	u, _ := s.users.FindByUsername(context.Background(), "frank")
	_ = s.users.SetActive(context.Background(), u.ID, false)

	rec, _ := s.do(http.MethodGet, "/api/users/me", access, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("deactivated bearer: expected 401, got %d", rec.Code)
	}

	rec, body := s.do(http.MethodPost, "/auth/login", "", `{"username":"frank","password":"pw1234"}`)
	if rec.Code != http.StatusBadRequest || body["error"] != "invalid credentials" {
		t.Fatalf("deactivated login: expected 400 invalid credentials, got %d %v", rec.Code, body)
	}
}

func TestRouter_AdminRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(t, nil)
	access, _ := s.register("gina")

	rec, _ := s.do(http.MethodGet, "/api/admin/users/anything", access, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for USER on admin route, got %d", rec.Code)
	}
}

func TestRouter_DuplicateRegistration(t *testing.T) {
	s := newTestServer(t, nil)
	s.register("hank")

	rec, body := s.do(http.MethodPost, "/auth/register", "",
		`{"username":"hank","password":"pw1234","email":"other@example.com"}`)
	if rec.Code != http.StatusBadRequest || body["error"] != "username already exists" {
		t.Fatalf("expected 400 username already exists, got %d %v", rec.Code, body)
	}
}

func TestRouter_AuthRateLimited(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.AuthLimiter = denyAllLimiter{} })

	rec, body := s.do(http.MethodPost, "/auth/login", "", `{"username":"x","password":"y"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "2" {
		t.Fatalf("expected Retry-After 2, got %q", rec.Header().Get("Retry-After"))
	}
	if body["error"] != "too many requests" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	for _, path := range []string{"/health", "/health/ready", "/metrics"} {
		rec, _ := s.do(http.MethodGet, path, "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}
