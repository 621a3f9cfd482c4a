package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rolegate/authd/internal/core/domain"
	"github.com/rolegate/authd/internal/core/ports"
)

// PermissionService resolves and creates permissions.
type PermissionService struct {
	repo  ports.PermissionRepository
	roles *RoleService
	log   zerolog.Logger
}

func NewPermissionService(repo ports.PermissionRepository, roles *RoleService, log zerolog.Logger) *PermissionService {
	return &PermissionService{repo: repo, roles: roles, log: log}
}

// GetPermissions resolves every name or fails with an InvalidValueError
// listing exactly the names that could not be located.
func (s *PermissionService) GetPermissions(ctx context.Context, names []string) ([]domain.Permission, error) {
	if len(names) == 0 {
		return nil, nil
	}
	wanted := uniqueNames(names)

	perms, err := s.repo.FindByNames(ctx, wanted)
	if err != nil {
		return nil, fmt.Errorf("find permissions: %w", err)
	}

	missing := make(map[string]struct{}, len(wanted))
	for _, n := range wanted {
		missing[n] = struct{}{}
	}
	for _, p := range perms {
		delete(missing, p.Name)
	}
	if len(missing) > 0 {
		return nil, &domain.InvalidValueError{Kind: domain.KindPermission, Missing: sortedKeys(missing)}
	}
	return perms, nil
}

// GetOrCreatePermission returns the permission called name, creating it when
// absent, and then grants it to every role in roles.
func (s *PermissionService) GetOrCreatePermission(ctx context.Context, name string, roles ...*domain.Role) (domain.Permission, error) {
	p, found, err := s.repo.FindByID(ctx, name)
	if err != nil {
		return domain.Permission{}, fmt.Errorf("find permission %s: %w", name, err)
	}
	if !found {
		s.log.Info().Str("permission", name).Msg("creating permission")
		if p, err = s.repo.Save(ctx, domain.NewPermission(name)); err != nil {
			return domain.Permission{}, fmt.Errorf("save permission %s: %w", name, err)
		}
	}

	if err := s.roles.AssignPermissionToRoles(ctx, p, roles...); err != nil {
		return domain.Permission{}, err
	}
	return p, nil
}
