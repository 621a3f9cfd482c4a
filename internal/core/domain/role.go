package domain

import "sort"

// Role is a named collection of permissions that may inherit further roles.
// Roles form a directed graph through their inherited-role sets.
type Role struct {
	name        string
	permissions map[string]Permission
	inherited   map[string]*Role
}

// NewRole returns an empty role called name.
func NewRole(name string) *Role {
	return &Role{
		name:        name,
		permissions: make(map[string]Permission),
		inherited:   make(map[string]*Role),
	}
}

func (r *Role) Name() string { return r.name }

// Permissions returns a snapshot of the permissions granted directly.
func (r *Role) Permissions() PermissionSet {
	perms := make([]Permission, 0, len(r.permissions))
	for _, p := range r.permissions {
		perms = append(perms, p)
	}
	return NewPermissionSet(perms...)
}

// InheritedRoles returns a snapshot of the directly inherited roles ordered
// by name.
func (r *Role) InheritedRoles() []*Role {
	out := make([]*Role, 0, len(r.inherited))
	for _, ir := range r.inherited {
		out = append(out, ir)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// InheritedRoleNames returns the names of the directly inherited roles.
func (r *Role) InheritedRoleNames() []string {
	names := make([]string, 0, len(r.inherited))
	for n := range r.inherited {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// AddPermission grants p directly to the role.
func (r *Role) AddPermission(p Permission) {
	r.permissions[p.Name] = p
}

// ReplaceInheritedRoles clears the inherited-role set and repopulates it with
// roles. The previous set is discarded, never merged.
func (r *Role) ReplaceInheritedRoles(roles ...*Role) {
	r.inherited = make(map[string]*Role, len(roles))
	for _, ir := range roles {
		if ir == nil {
			continue
		}
		r.inherited[ir.name] = ir
	}
}

// CombinedPermissions returns the role's own permissions together with the
// permissions of every role reachable through inheritance. The walk tracks
// visited role names, so a cyclic graph still terminates.
func (r *Role) CombinedPermissions() PermissionSet {
	combined := make(map[string]Permission)
	visited := map[string]struct{}{r.name: {}}
	stack := []*Role{r}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for n, p := range cur.permissions {
			combined[n] = p
		}
		for n, ir := range cur.inherited {
			if _, seen := visited[n]; seen {
				continue
			}
			visited[n] = struct{}{}
			stack = append(stack, ir)
		}
	}
	return PermissionSet{items: combined}
}
