package domain

import "sort"

// Built-in permissions guarding the user management operations.
const (
	PermUserCreate            = "user::create"
	PermUserViewSelf          = "user::view::self"
	PermUserViewAll           = "user::view::all"
	PermUserPermissionsAssign = "user::permissions::assign"
	PermUserDelete            = "user::delete"
	PermPasswordResetSelf     = "user::password::reset::self"
	PermPasswordResetAll      = "user::password::reset::all"
)

// BuiltinPermissions lists every permission the service itself checks.
func BuiltinPermissions() []string {
	return []string{
		PermUserCreate,
		PermUserViewSelf,
		PermUserViewAll,
		PermUserPermissionsAssign,
		PermUserDelete,
		PermPasswordResetSelf,
		PermPasswordResetAll,
	}
}

// Permission is an atomic named capability. Two permissions are equal when
// their names are equal.
type Permission struct {
	Name string
}

// NewPermission returns the permission called name.
func NewPermission(name string) Permission {
	return Permission{Name: name}
}

// PermissionSet is an immutable set of permissions keyed by name. Every
// accessor returns a copy, so callers can never mutate the owner through it.
type PermissionSet struct {
	items map[string]Permission
}

// NewPermissionSet builds a set from perms; duplicates collapse by name.
func NewPermissionSet(perms ...Permission) PermissionSet {
	items := make(map[string]Permission, len(perms))
	for _, p := range perms {
		items[p.Name] = p
	}
	return PermissionSet{items: items}
}

// PermissionSetOf builds a set from permission names.
func PermissionSetOf(names ...string) PermissionSet {
	items := make(map[string]Permission, len(names))
	for _, n := range names {
		items[n] = Permission{Name: n}
	}
	return PermissionSet{items: items}
}

func (s PermissionSet) Len() int { return len(s.items) }

func (s PermissionSet) Contains(name string) bool {
	_, ok := s.items[name]
	return ok
}

// Names returns the permission names in ascending order.
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s.items))
	for n := range s.items {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Union returns a new set holding the permissions of s and other.
func (s PermissionSet) Union(other PermissionSet) PermissionSet {
	items := make(map[string]Permission, len(s.items)+len(other.items))
	for n, p := range s.items {
		items[n] = p
	}
	for n, p := range other.items {
		items[n] = p
	}
	return PermissionSet{items: items}
}

// Equal reports whether both sets hold the same permission names.
func (s PermissionSet) Equal(other PermissionSet) bool {
	if len(s.items) != len(other.items) {
		return false
	}
	for n := range s.items {
		if _, ok := other.items[n]; !ok {
			return false
		}
	}
	return true
}
