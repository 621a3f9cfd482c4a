package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/rolegate/authd/internal/core/domain"
	"github.com/rolegate/authd/internal/core/ports"
)

// RoleService resolves and maintains roles.
type RoleService struct {
	repo ports.RoleRepository
	log  zerolog.Logger
}

func NewRoleService(repo ports.RoleRepository, log zerolog.Logger) *RoleService {
	return &RoleService{repo: repo, log: log}
}

// GetRoles resolves every name or fails with an InvalidValueError listing
// exactly the names that could not be located.
func (s *RoleService) GetRoles(ctx context.Context, names []string) ([]*domain.Role, error) {
	if len(names) == 0 {
		return nil, nil
	}
	wanted := uniqueNames(names)

	roles, err := s.repo.FindByNames(ctx, wanted)
	if err != nil {
		return nil, fmt.Errorf("find roles: %w", err)
	}

	missing := make(map[string]struct{}, len(wanted))
	for _, n := range wanted {
		missing[n] = struct{}{}
	}
	for _, r := range roles {
		delete(missing, r.Name())
	}
	if len(missing) > 0 {
		return nil, &domain.InvalidValueError{Kind: domain.KindRole, Missing: sortedKeys(missing)}
	}
	return roles, nil
}

// GetOrCreateRole returns the role called name, creating it when absent. The
// inherited-role set is always replaced by inherited and the role is saved.
func (s *RoleService) GetOrCreateRole(ctx context.Context, name string, inherited ...*domain.Role) (*domain.Role, error) {
	role, err := s.repo.FindByName(ctx, name)
	switch {
	case errors.Is(err, domain.ErrRoleNotFound):
		role = domain.NewRole(name)
		s.log.Info().Str("role", name).Msg("creating role")
	case err != nil:
		return nil, fmt.Errorf("find role %s: %w", name, err)
	}

	role.ReplaceInheritedRoles(inherited...)
	saved, err := s.repo.Save(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("save role %s: %w", name, err)
	}
	return saved, nil
}

// AssignPermissionToRoles grants p to every role and persists them together.
func (s *RoleService) AssignPermissionToRoles(ctx context.Context, p domain.Permission, roles ...*domain.Role) error {
	if len(roles) == 0 {
		return nil
	}
	for _, r := range roles {
		r.AddPermission(p)
	}
	if err := s.repo.SaveAll(ctx, roles); err != nil {
		return fmt.Errorf("assign permission %s: %w", p.Name, err)
	}
	return nil
}

func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
