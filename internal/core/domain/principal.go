package domain

import "strings"

// Authority is anything a token can be issued for: a stable subject plus the
// permissions it holds at issue time.
type Authority interface {
	Subject() string
	EffectivePermissions() PermissionSet
}

// RoleBearer is implemented by authorities that also expose role names.
// Tokens issued for a RoleBearer carry a roles claim.
type RoleBearer interface {
	RoleNames() []string
}

// Principal is the resolved identity of the current caller together with its
// effective permissions.
type Principal struct {
	Email       string
	Permissions PermissionSet
	Roles       []string
}

func (p *Principal) Subject() string { return p.Email }

func (p *Principal) EffectivePermissions() PermissionSet { return p.Permissions }

// HasPermission reports whether the principal holds the named permission.
func (p *Principal) HasPermission(name string) bool {
	return p != nil && p.Permissions.Contains(name)
}

// Is reports whether the principal is the user identified by email. The
// comparison ignores case.
func (p *Principal) Is(email string) bool {
	return p != nil && strings.EqualFold(p.Email, email)
}

// PrincipalFromUser resolves the principal of a persisted user.
func PrincipalFromUser(u *User) *Principal {
	return &Principal{
		Email:       u.Email,
		Permissions: u.EffectivePermissions(),
		Roles:       u.RoleNames(),
	}
}

// Requirement describes what an operation demands of the caller. The
// requirement is met when the caller holds Permission, or when the caller is
// Target and holds SelfPermission.
type Requirement struct {
	Permission     string
	SelfPermission string
	Target         string
}

// RequirePermission returns a requirement satisfied only by perm.
func RequirePermission(perm string) Requirement {
	return Requirement{Permission: perm}
}

// RequireSelfOr returns a requirement satisfied by all, or by self when the
// caller is target.
func RequireSelfOr(all, self, target string) Requirement {
	return Requirement{Permission: all, SelfPermission: self, Target: target}
}
