package ports

import (
	"context"

	"github.com/rolegate/authd/internal/core/domain"
)

// UserRepository persists users. FindByEmail returns domain.ErrUserNotFound
// when no user matches. Roles on returned users are fully linked, including
// every inherited role.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	DeleteByEmail(ctx context.Context, email string) error
	Save(ctx context.Context, user *domain.User) (*domain.User, error)
}

// RoleRepository persists roles and their inheritance graph.
type RoleRepository interface {
	// FindByName returns domain.ErrRoleNotFound when the role does not exist.
	FindByName(ctx context.Context, name string) (*domain.Role, error)
	// FindByNames returns the roles that exist; unknown names are skipped.
	FindByNames(ctx context.Context, names []string) ([]*domain.Role, error)
	Save(ctx context.Context, role *domain.Role) (*domain.Role, error)
	SaveAll(ctx context.Context, roles []*domain.Role) error
}

// PermissionRepository persists permissions.
type PermissionRepository interface {
	// FindByID returns false when the permission does not exist.
	FindByID(ctx context.Context, name string) (domain.Permission, bool, error)
	// FindByNames returns the permissions that exist; unknown names are skipped.
	FindByNames(ctx context.Context, names []string) ([]domain.Permission, error)
	Save(ctx context.Context, p domain.Permission) (domain.Permission, error)
}

// AuditRepository stores audit events.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuditEvent) error
}
