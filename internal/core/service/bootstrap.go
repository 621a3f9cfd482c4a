package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rolegate/authd/internal/core/domain"
	"github.com/rolegate/authd/internal/core/ports"
)

// Built-in role names.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// AdminAccount is the account seeded on first start. An empty Email skips it.
type AdminAccount struct {
	Email     string
	Password  string
	Firstname string
	Lastname  string
}

// Bootstrapper seeds the built-in permissions, roles and admin account. It is
// safe to run on every start.
type Bootstrapper struct {
	roles  *RoleService
	perms  *PermissionService
	users  ports.UserRepository
	hasher ports.PasswordHasher
	clock  ports.Clock
	log    zerolog.Logger
}

func NewBootstrapper(
	roles *RoleService,
	perms *PermissionService,
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	clock ports.Clock,
	log zerolog.Logger,
) *Bootstrapper {
	return &Bootstrapper{roles: roles, perms: perms, users: users, hasher: hasher, clock: clock, log: log}
}

// Run makes sure USER and ADMIN exist, ADMIN inherits USER and holds every
// built-in permission, and the admin account is present.
func (b *Bootstrapper) Run(ctx context.Context, admin AdminAccount) error {
	user, err := b.roles.GetOrCreateRole(ctx, RoleUser)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	adminRole, err := b.roles.GetOrCreateRole(ctx, RoleAdmin, user)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	selfService := map[string]bool{
		domain.PermUserViewSelf:      true,
		domain.PermPasswordResetSelf: true,
	}
	for _, name := range domain.BuiltinPermissions() {
		grantees := []*domain.Role{adminRole}
		if selfService[name] {
			grantees = append(grantees, user)
		}
		if _, err := b.perms.GetOrCreatePermission(ctx, name, grantees...); err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
	}

	if admin.Email == "" {
		b.log.Info().Msg("no admin account configured, skipping")
		return nil
	}
	exists, err := b.users.ExistsByEmail(ctx, admin.Email)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := b.hasher.Hash(admin.Password)
	if err != nil {
		return fmt.Errorf("bootstrap: hash admin password: %w", err)
	}
	now := b.clock.Now().UTC()
	account := domain.NewUser(admin.Email, hash, admin.Firstname, admin.Lastname)
	account.AddRoles(adminRole)
	account.CreatedAt = now
	account.UpdatedAt = now
	if _, err := b.users.Save(ctx, account); err != nil {
		return fmt.Errorf("bootstrap: save admin: %w", err)
	}
	b.log.Info().Str("email", admin.Email).Msg("admin account created")
	return nil
}
