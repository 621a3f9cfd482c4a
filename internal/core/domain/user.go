package domain

import (
	"sort"
	"time"
)

// User models a registered identity. Email is the stable natural key and is
// used as the token subject.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Firstname    string
	Lastname     string

	Enabled               bool
	AccountNonExpired     bool
	AccountNonLocked      bool
	CredentialsNonExpired bool

	CreatedAt time.Time
	UpdatedAt time.Time

	roles       map[string]*Role
	permissions map[string]Permission
}

// NewUser returns a user with every account flag in its good state.
func NewUser(email, passwordHash, firstname, lastname string) *User {
	return &User{
		Email:                 email,
		PasswordHash:          passwordHash,
		Firstname:             firstname,
		Lastname:              lastname,
		Enabled:               true,
		AccountNonExpired:     true,
		AccountNonLocked:      true,
		CredentialsNonExpired: true,
		roles:                 make(map[string]*Role),
		permissions:           make(map[string]Permission),
	}
}

// CanAuthenticate reports whether every account flag allows a login.
func (u *User) CanAuthenticate() bool {
	return u.Enabled && u.AccountNonExpired && u.AccountNonLocked && u.CredentialsNonExpired
}

// Roles returns a snapshot of the directly assigned roles ordered by name.
func (u *User) Roles() []*Role {
	out := make([]*Role, 0, len(u.roles))
	for _, r := range u.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// RoleNames returns the names of the directly assigned roles.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.roles))
	for n := range u.roles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Permissions returns a snapshot of the directly granted permissions.
func (u *User) Permissions() PermissionSet {
	perms := make([]Permission, 0, len(u.permissions))
	for _, p := range u.permissions {
		perms = append(perms, p)
	}
	return NewPermissionSet(perms...)
}

func (u *User) ensure() {
	if u.roles == nil {
		u.roles = make(map[string]*Role)
	}
	if u.permissions == nil {
		u.permissions = make(map[string]Permission)
	}
}

func (u *User) AddRoles(roles ...*Role) {
	u.ensure()
	for _, r := range roles {
		if r != nil {
			u.roles[r.name] = r
		}
	}
}

func (u *User) RemoveRoles(roles ...*Role) {
	u.ensure()
	for _, r := range roles {
		if r != nil {
			delete(u.roles, r.name)
		}
	}
}

func (u *User) AddPermissions(perms ...Permission) {
	u.ensure()
	for _, p := range perms {
		u.permissions[p.Name] = p
	}
}

func (u *User) RemovePermissions(perms ...Permission) {
	u.ensure()
	for _, p := range perms {
		delete(u.permissions, p.Name)
	}
}

// EffectivePermissions is the union of the direct permissions and the
// combined permissions of every assigned role.
func (u *User) EffectivePermissions() PermissionSet {
	effective := u.Permissions()
	for _, r := range u.roles {
		effective = effective.Union(r.CombinedPermissions())
	}
	return effective
}

// Subject implements Authority.
func (u *User) Subject() string { return u.Email }
