package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/rolegate/authd/internal/core/domain"
	"github.com/rolegate/authd/internal/core/ports"
)

type userFixture struct {
	svc     ports.UserService
	users   *stubUserRepo
	roles   *stubRoleRepo
	tokens  ports.TokenService
	limiter *stubLimiter
	sink    *recordingSink
	admin   *domain.User
	caller  *domain.Principal
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	userRole, adminRole := testRoles()

	admin := domain.NewUser("admin@x.com", "hashed:correct-horse", "Ada", "Min")
	admin.AddRoles(adminRole)

	f := &userFixture{
		users:   newStubUserRepo(admin),
		roles:   newStubRoleRepo(userRole, adminRole),
		limiter: &stubLimiter{},
		sink:    &recordingSink{},
		admin:   admin,
		caller:  domain.PrincipalFromUser(admin),
	}
	clock := &stubClock{now: testNow}
	f.tokens = newTestTokenService(t, clock)

	roleSvc := NewRoleService(f.roles, zerolog.Nop())
	permSvc := NewPermissionService(newStubPermRepo(append(domain.BuiltinPermissions(), "report::read")...), roleSvc, zerolog.Nop())
	f.svc = NewUserService(f.users, roleSvc, permSvc, f.tokens, &stubHasher{}, clock, zerolog.Nop(),
		WithLoginLimiter(f.limiter), WithAuditSink(f.sink))
	return f
}

func TestUserService_Authenticate_Success(t *testing.T) {
	f := newUserFixture(t)

	token, err := f.svc.Authenticate(context.Background(), "admin@x.com", "correct-horse")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if !f.tokens.IsValid(token, "admin@x.com") {
		t.Fatalf("issued token is not valid for the user")
	}
	if !reflect.DeepEqual(f.limiter.resets, []string{"admin@x.com"}) {
		t.Fatalf("expected limiter reset, got %v", f.limiter.resets)
	}
	if got := f.sink.actions(); !reflect.DeepEqual(got, []domain.AuditAction{domain.AuditLoginSucceeded}) {
		t.Fatalf("unexpected audit trail: %v", got)
	}
}

func TestUserService_Authenticate_FailuresLookAlike(t *testing.T) {
	f := newUserFixture(t)
	disabled := domain.NewUser("off@x.com", "hashed:correct-horse", "O", "Ff")
	disabled.Enabled = false
	f.users.users[disabled.Email] = disabled

	cases := map[string][2]string{
		"unknown email":  {"ghost@x.com", "correct-horse"},
		"wrong password": {"admin@x.com", "wrong-horse"},
		"disabled":       {"off@x.com", "correct-horse"},
	}
	var messages []string
	for name, c := range cases {
		_, err := f.svc.Authenticate(context.Background(), c[0], c[1])
		if !errors.Is(err, domain.ErrUnauthorised) {
			t.Fatalf("%s: expected ErrUnauthorised, got %v", name, err)
		}
		messages = append(messages, err.Error())
	}
	for _, m := range messages[1:] {
		if m != messages[0] {
			t.Fatalf("failure messages must not differ: %v", messages)
		}
	}
	if f.limiter.failures["admin@x.com"] != 1 || f.limiter.failures["ghost@x.com"] != 1 {
		t.Fatalf("failures not recorded: %v", f.limiter.failures)
	}
}

func TestUserService_Authenticate_Locked(t *testing.T) {
	f := newUserFixture(t)
	f.limiter.lockAfter = 2

	for i := 0; i < 2; i++ {
		_, _ = f.svc.Authenticate(context.Background(), "admin@x.com", "wrong-horse")
	}
	if _, err := f.svc.Authenticate(context.Background(), "admin@x.com", "correct-horse"); !errors.Is(err, domain.ErrUnauthorised) {
		t.Fatalf("locked account must be rejected, got %v", err)
	}
	if f.limiter.failures["admin@x.com"] != 2 {
		t.Fatalf("locked attempts must not count again, got %d", f.limiter.failures["admin@x.com"])
	}
}

func TestUserService_Authenticate_LimiterFailsOpen(t *testing.T) {
	f := newUserFixture(t)
	f.limiter.lockedErr = errors.New("redis down")

	if _, err := f.svc.Authenticate(context.Background(), "admin@x.com", "correct-horse"); err != nil {
		t.Fatalf("limiter outage must not block logins: %v", err)
	}
}

func TestUserService_Register_TokenCarriesRolePermissions(t *testing.T) {
	f := newUserFixture(t)

	token, err := f.svc.Register(context.Background(), f.caller, ports.RegisterInput{
		Email:     "a@x.com",
		Password:  "long-enough-password",
		Firstname: "A",
		Lastname:  "X",
		Roles:     []string{"USER"},
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	claims, err := f.tokens.ParseClaims(token)
	if err != nil {
		t.Fatalf("ParseClaims failed: %v", err)
	}
	want := f.roles.roles["USER"].CombinedPermissions().Names()
	if !reflect.DeepEqual(claims.Permissions, want) {
		t.Fatalf("expected permissions %v, got %v", want, claims.Permissions)
	}

	stored := f.users.users["a@x.com"]
	if stored == nil || stored.PasswordHash != "hashed:long-enough-password" {
		t.Fatalf("user not stored with hashed password: %+v", stored)
	}
	if got := f.sink.actions(); !reflect.DeepEqual(got, []domain.AuditAction{domain.AuditUserRegistered}) {
		t.Fatalf("unexpected audit trail: %v", got)
	}
}

func TestUserService_Register_Duplicate(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.svc.Register(context.Background(), f.caller, ports.RegisterInput{Email: "admin@x.com", Password: "long-enough-password"})
	if !errors.Is(err, domain.ErrUserAlreadyRegistered) {
		t.Fatalf("expected ErrUserAlreadyRegistered, got %v", err)
	}
	var rule *domain.BusinessRuleError
	if !errors.As(err, &rule) || rule.Code != domain.CodeUserAlreadyRegistered {
		t.Fatalf("expected business rule code, got %v", err)
	}
}

func TestUserService_Register_UnknownRoleSavesNothing(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.svc.Register(context.Background(), f.caller, ports.RegisterInput{
		Email:    "b@x.com",
		Password: "long-enough-password",
		Roles:    []string{"USER", "BOGUS"},
	})
	if !errors.Is(err, domain.ErrInvalidRoleValue) {
		t.Fatalf("expected ErrInvalidRoleValue, got %v", err)
	}
	if f.users.saves != 0 {
		t.Fatalf("expected no save, got %d", f.users.saves)
	}
}

func TestUserService_DeleteUser(t *testing.T) {
	f := newUserFixture(t)
	f.users.users["victim@x.com"] = domain.NewUser("victim@x.com", "h", "V", "Ictim")

	if err := f.svc.DeleteUser(context.Background(), f.caller, "victim@x.com"); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if _, ok := f.users.users["victim@x.com"]; ok {
		t.Fatalf("user still present")
	}

	if err := f.svc.DeleteUser(context.Background(), f.caller, "victim@x.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_DeleteUser_Self(t *testing.T) {
	f := newUserFixture(t)

	err := f.svc.DeleteUser(context.Background(), f.caller, "ADMIN@x.com")
	if !errors.Is(err, domain.ErrCannotDeleteSelf) {
		t.Fatalf("expected ErrCannotDeleteSelf, got %v", err)
	}
	if len(f.users.deletes) != 0 {
		t.Fatalf("no deletion may happen, got %v", f.users.deletes)
	}

	// the self check runs before the existence check
	ghost := &domain.Principal{Email: "ghost@x.com"}
	if err := f.svc.DeleteUser(context.Background(), ghost, "ghost@x.com"); !errors.Is(err, domain.ErrCannotDeleteSelf) {
		t.Fatalf("expected ErrCannotDeleteSelf, got %v", err)
	}
}

func TestUserService_UntypedCallerIsInternal(t *testing.T) {
	f := newUserFixture(t)

	if err := f.svc.DeleteUser(context.Background(), nil, "x@x.com"); !errors.Is(err, domain.ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
	err := f.svc.UpdatePermissions(context.Background(), &domain.Principal{}, ports.UpdatePermissionsInput{Email: "x@x.com"})
	if !errors.Is(err, domain.ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
}

func TestUserService_ResetPassword(t *testing.T) {
	f := newUserFixture(t)

	if err := f.svc.ResetPassword(context.Background(), f.caller, "admin@x.com", "brand-new-secret"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}
	if f.admin.PasswordHash != "hashed:brand-new-secret" {
		t.Fatalf("password not re-hashed: %s", f.admin.PasswordHash)
	}
	if err := f.svc.ResetPassword(context.Background(), f.caller, "ghost@x.com", "brand-new-secret"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_UpdatePermissions_EmptyIsNoop(t *testing.T) {
	f := newUserFixture(t)

	for _, in := range []ports.UpdatePermissionsInput{
		{Email: "b@x.com"},
		{Email: "b@x.com", Add: &ports.PermissionChange{}, Remove: &ports.PermissionChange{Roles: []string{}}},
	} {
		if err := f.svc.UpdatePermissions(context.Background(), f.caller, in); err != nil {
			t.Fatalf("expected no-op, got %v", err)
		}
	}
	if f.users.saves != 0 || f.users.lookups != 0 {
		t.Fatalf("expected no lookup and no save, got %d lookups %d saves", f.users.lookups, f.users.saves)
	}
}

func TestUserService_UpdatePermissions_Self(t *testing.T) {
	f := newUserFixture(t)

	err := f.svc.UpdatePermissions(context.Background(), f.caller, ports.UpdatePermissionsInput{
		Email: "admin@x.com",
		Add:   &ports.PermissionChange{Permissions: []string{"report::read"}},
	})
	if !errors.Is(err, domain.ErrCannotAssignPermissionsToSelf) {
		t.Fatalf("expected ErrCannotAssignPermissionsToSelf, got %v", err)
	}
	if f.users.saves != 0 {
		t.Fatalf("expected no save, got %d", f.users.saves)
	}
}

func TestUserService_UpdatePermissions_AddThenRemove(t *testing.T) {
	f := newUserFixture(t)
	target := domain.NewUser("b@x.com", "h", "B", "X")
	target.AddRoles(f.roles.roles["USER"])
	f.users.users[target.Email] = target

	err := f.svc.UpdatePermissions(context.Background(), f.caller, ports.UpdatePermissionsInput{
		Email:  "b@x.com",
		Add:    &ports.PermissionChange{Roles: []string{"ADMIN"}, Permissions: []string{"report::read"}},
		Remove: &ports.PermissionChange{Roles: []string{"USER"}, Permissions: []string{"report::read"}},
	})
	if err != nil {
		t.Fatalf("UpdatePermissions failed: %v", err)
	}
	if got := target.RoleNames(); !reflect.DeepEqual(got, []string{"ADMIN"}) {
		t.Fatalf("expected roles [ADMIN], got %v", got)
	}
	if target.Permissions().Contains("report::read") {
		t.Fatalf("remove must apply after add")
	}
	if f.users.saves != 1 {
		t.Fatalf("expected a single save, got %d", f.users.saves)
	}
}

func TestUserService_UpdatePermissions_UnknownPermission(t *testing.T) {
	f := newUserFixture(t)
	f.users.users["b@x.com"] = domain.NewUser("b@x.com", "h", "B", "X")

	err := f.svc.UpdatePermissions(context.Background(), f.caller, ports.UpdatePermissionsInput{
		Email: "b@x.com",
		Add:   &ports.PermissionChange{Permissions: []string{"nope"}},
	})
	if !errors.Is(err, domain.ErrInvalidPermissionValue) {
		t.Fatalf("expected ErrInvalidPermissionValue, got %v", err)
	}
	if f.users.saves != 0 {
		t.Fatalf("expected no save, got %d", f.users.saves)
	}
}

func TestUserService_UpdatePermissions_UnknownPermissionReportedBeforeRole(t *testing.T) {
	f := newUserFixture(t)
	f.users.users["b@x.com"] = domain.NewUser("b@x.com", "h", "B", "X")

	err := f.svc.UpdatePermissions(context.Background(), f.caller, ports.UpdatePermissionsInput{
		Email: "b@x.com",
		Add:   &ports.PermissionChange{Roles: []string{"GHOST"}, Permissions: []string{"nope"}},
	})
	if !errors.Is(err, domain.ErrInvalidPermissionValue) {
		t.Fatalf("expected ErrInvalidPermissionValue, got %v", err)
	}
	if f.users.saves != 0 {
		t.Fatalf("expected no save, got %d", f.users.saves)
	}
}
