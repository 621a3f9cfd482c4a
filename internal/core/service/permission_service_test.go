package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/rolegate/authd/internal/core/domain"
)

func TestPermissionService_GetPermissions_ReportsOnlyMissing(t *testing.T) {
	roles := NewRoleService(newStubRoleRepo(), zerolog.Nop())
	svc := NewPermissionService(newStubPermRepo(domain.PermUserDelete), roles, zerolog.Nop())

	_, err := svc.GetPermissions(context.Background(), []string{"zzz", domain.PermUserDelete, "aaa"})
	var invalid *domain.InvalidValueError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidValueError, got %v", err)
	}
	if !reflect.DeepEqual(invalid.Missing, []string{"aaa", "zzz"}) {
		t.Fatalf("unexpected missing names: %v", invalid.Missing)
	}
	if !errors.Is(err, domain.ErrInvalidPermissionValue) {
		t.Fatalf("expected ErrInvalidPermissionValue, got %v", err)
	}
}

func TestPermissionService_GetOrCreatePermission_AssignsToRoles(t *testing.T) {
	user, admin := testRoles()
	roleRepo := newStubRoleRepo(user, admin)
	permRepo := newStubPermRepo()
	svc := NewPermissionService(permRepo, NewRoleService(roleRepo, zerolog.Nop()), zerolog.Nop())

	p, err := svc.GetOrCreatePermission(context.Background(), "report::export", user, admin)
	if err != nil {
		t.Fatalf("GetOrCreatePermission failed: %v", err)
	}
	if p.Name != "report::export" {
		t.Fatalf("unexpected permission %q", p.Name)
	}
	if permRepo.saves != 1 {
		t.Fatalf("expected permission saved once, got %d", permRepo.saves)
	}
	if !user.Permissions().Contains(p.Name) || !admin.Permissions().Contains(p.Name) {
		t.Fatalf("permission must be granted to every supplied role")
	}

	if _, err := svc.GetOrCreatePermission(context.Background(), "report::export"); err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if permRepo.saves != 1 {
		t.Fatalf("existing permission must not be saved again, got %d saves", permRepo.saves)
	}
}
