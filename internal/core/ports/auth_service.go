package ports

import (
	"context"
	"time"

	"github.com/rolegate/authd/internal/core/domain"
)

// PasswordHasher is a one-way password hashing function.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// LoginLimiter throttles repeated failed logins per email.
type LoginLimiter interface {
	Locked(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) (locked bool, err error)
	Reset(ctx context.Context, email string) error
}

// AuditSink accepts audit events for asynchronous persistence.
type AuditSink interface {
	Enqueue(event domain.AuditEvent)
}

// AuditService persists a single audit event.
type AuditService interface {
	Process(ctx context.Context, event domain.AuditEvent) error
}

// TokenParams are the inputs of the low-level signing primitive. Service
// tokens use it directly with their own key, subject and validity.
type TokenParams struct {
	ID       string
	Issuer   string
	Subject  string
	Validity time.Duration
	Key      []byte
	Claims   map[string]any
}

// TokenClaims is the verified payload of a bearer token.
type TokenClaims struct {
	ID          string
	Issuer      string
	Subject     string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Permissions []string
	Roles       []string
}

// TokenService issues and verifies signed bearer tokens.
type TokenService interface {
	Issue(a domain.Authority, extra map[string]any) (string, error)
	IssueToken(p TokenParams) (string, error)
	ParseClaims(token string) (*TokenClaims, error)
	IsValid(token, expectedSubject string) bool
	ExtractPrincipal(token string) (*domain.Principal, error)
}

// Authenticator resolves the principal behind an Authorization header. A nil
// principal with a nil error means no bearer credential was presented.
type Authenticator interface {
	ResolvePrincipal(ctx context.Context, authHeader string) (*domain.Principal, error)
	Mode() string
}

// PermissionChange lists role and permission names to add or remove.
type PermissionChange struct {
	Roles       []string
	Permissions []string
}

// Empty reports whether the change names nothing. A nil change is empty.
func (c *PermissionChange) Empty() bool {
	return c == nil || (len(c.Roles) == 0 && len(c.Permissions) == 0)
}

// RegisterInput carries the data needed to register a user.
type RegisterInput struct {
	Email       string
	Password    string
	Firstname   string
	Lastname    string
	Roles       []string
	Permissions []string
}

// UpdatePermissionsInput targets the user identified by Email.
type UpdatePermissionsInput struct {
	Email  string
	Add    *PermissionChange
	Remove *PermissionChange
}

// UserService orchestrates the user lifecycle. caller is the principal of
// the authenticated request.
type UserService interface {
	Authenticate(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, caller *domain.Principal, in RegisterInput) (string, error)
	GetUser(ctx context.Context, email string) (*domain.User, error)
	DeleteUser(ctx context.Context, caller *domain.Principal, email string) error
	ResetPassword(ctx context.Context, caller *domain.Principal, email, password string) error
	UpdatePermissions(ctx context.Context, caller *domain.Principal, in UpdatePermissionsInput) error
}
