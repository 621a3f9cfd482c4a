package service

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"
	"time"

	"github.com/rolegate/authd/internal/core/domain"
	"github.com/rolegate/authd/internal/core/ports"
)

var testSecret = base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

var testNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

type stubClock struct{ now time.Time }

func (c *stubClock) Now() time.Time { return c.now }

type stubHasher struct{ hashErr error }

func (h *stubHasher) Hash(plain string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hashed:" + plain, nil
}

func (h *stubHasher) Verify(plain, hash string) bool { return hash == "hashed:"+plain }

type stubUserRepo struct {
	users     map[string]*domain.User
	saves     int
	deletes   []string
	lookups   int
	findErr   error
	existsErr error
}

func newStubUserRepo(users ...*domain.User) *stubUserRepo {
	r := &stubUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		r.users[u.Email] = u
	}
	return r
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.lookups++
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *stubUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	if r.existsErr != nil {
		return false, r.existsErr
	}
	_, ok := r.users[email]
	return ok, nil
}

func (r *stubUserRepo) DeleteByEmail(_ context.Context, email string) error {
	r.deletes = append(r.deletes, email)
	delete(r.users, email)
	return nil
}

func (r *stubUserRepo) Save(_ context.Context, u *domain.User) (*domain.User, error) {
	r.saves++
	if u.ID == "" {
		u.ID = "id-" + u.Email
	}
	r.users[u.Email] = u
	return u, nil
}

type stubRoleRepo struct {
	roles    map[string]*domain.Role
	saves    int
	saveAlls int
}

func newStubRoleRepo(roles ...*domain.Role) *stubRoleRepo {
	r := &stubRoleRepo{roles: make(map[string]*domain.Role)}
	for _, role := range roles {
		r.roles[role.Name()] = role
	}
	return r
}

func (r *stubRoleRepo) FindByName(_ context.Context, name string) (*domain.Role, error) {
	role, ok := r.roles[name]
	if !ok {
		return nil, domain.ErrRoleNotFound
	}
	return role, nil
}

func (r *stubRoleRepo) FindByNames(_ context.Context, names []string) ([]*domain.Role, error) {
	var out []*domain.Role
	for _, n := range names {
		if role, ok := r.roles[n]; ok {
			out = append(out, role)
		}
	}
	return out, nil
}

func (r *stubRoleRepo) Save(_ context.Context, role *domain.Role) (*domain.Role, error) {
	r.saves++
	r.roles[role.Name()] = role
	return role, nil
}

func (r *stubRoleRepo) SaveAll(_ context.Context, roles []*domain.Role) error {
	r.saveAlls++
	for _, role := range roles {
		r.roles[role.Name()] = role
	}
	return nil
}

type stubPermRepo struct {
	perms map[string]domain.Permission
	saves int
}

func newStubPermRepo(names ...string) *stubPermRepo {
	r := &stubPermRepo{perms: make(map[string]domain.Permission)}
	for _, n := range names {
		r.perms[n] = domain.NewPermission(n)
	}
	return r
}

func (r *stubPermRepo) FindByID(_ context.Context, name string) (domain.Permission, bool, error) {
	p, ok := r.perms[name]
	return p, ok, nil
}

func (r *stubPermRepo) FindByNames(_ context.Context, names []string) ([]domain.Permission, error) {
	var out []domain.Permission
	for _, n := range names {
		if p, ok := r.perms[n]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubPermRepo) Save(_ context.Context, p domain.Permission) (domain.Permission, error) {
	r.saves++
	r.perms[p.Name] = p
	return p, nil
}

type stubLimiter struct {
	locked    bool
	lockedErr error
	failures  map[string]int
	resets    []string
	lockAfter int
}

func (l *stubLimiter) Locked(_ context.Context, email string) (bool, error) {
	if l.lockedErr != nil {
		return false, l.lockedErr
	}
	return l.locked, nil
}

func (l *stubLimiter) RecordFailure(_ context.Context, email string) (bool, error) {
	if l.failures == nil {
		l.failures = make(map[string]int)
	}
	l.failures[email]++
	if l.lockAfter > 0 && l.failures[email] >= l.lockAfter {
		l.locked = true
	}
	return l.locked, nil
}

func (l *stubLimiter) Reset(_ context.Context, email string) error {
	l.resets = append(l.resets, email)
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (s *recordingSink) Enqueue(e domain.AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) actions() []domain.AuditAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditAction, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Action)
	}
	return out
}

// testRoles builds USER (view self) and ADMIN inheriting USER with every
// built-in permission.
func testRoles() (user, admin *domain.Role) {
	user = domain.NewRole(RoleUser)
	user.AddPermission(domain.NewPermission(domain.PermUserViewSelf))
	user.AddPermission(domain.NewPermission(domain.PermPasswordResetSelf))

	admin = domain.NewRole(RoleAdmin)
	admin.ReplaceInheritedRoles(user)
	for _, name := range domain.BuiltinPermissions() {
		if !strings.HasSuffix(name, "::self") {
			admin.AddPermission(domain.NewPermission(name))
		}
	}
	return user, admin
}

var _ ports.UserRepository = (*stubUserRepo)(nil)
var _ ports.RoleRepository = (*stubRoleRepo)(nil)
var _ ports.PermissionRepository = (*stubPermRepo)(nil)
var _ ports.LoginLimiter = (*stubLimiter)(nil)
var _ ports.AuditSink = (*recordingSink)(nil)
