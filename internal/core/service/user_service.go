package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rolegate/authd/internal/core/domain"
	"github.com/rolegate/authd/internal/core/ports"
)

// UserOption configures optional collaborators of the user service.
type UserOption func(*userService)

// WithLoginLimiter enables failed-login lockout.
func WithLoginLimiter(l ports.LoginLimiter) UserOption {
	return func(s *userService) { s.limiter = l }
}

// WithAuditSink records security events on sink.
func WithAuditSink(sink ports.AuditSink) UserOption {
	return func(s *userService) { s.audit = sink }
}

type userService struct {
	users   ports.UserRepository
	roles   *RoleService
	perms   *PermissionService
	tokens  ports.TokenService
	hasher  ports.PasswordHasher
	clock   ports.Clock
	limiter ports.LoginLimiter
	audit   ports.AuditSink
	log     zerolog.Logger
}

// NewUserService returns a UserService implementation.
func NewUserService(
	users ports.UserRepository,
	roles *RoleService,
	perms *PermissionService,
	tokens ports.TokenService,
	hasher ports.PasswordHasher,
	clock ports.Clock,
	log zerolog.Logger,
	opts ...UserOption,
) ports.UserService {
	s := &userService{
		users:  users,
		roles:  roles,
		perms:  perms,
		tokens: tokens,
		hasher: hasher,
		clock:  clock,
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticate verifies the credentials and issues a token. Every failure is
// reported as the same domain.ErrUnauthorised.
func (s *userService) Authenticate(ctx context.Context, email, password string) (string, error) {
	if s.limiter != nil {
		locked, err := s.limiter.Locked(ctx, email)
		if err != nil {
			s.log.Warn().Err(err).Str("email", email).Msg("login limiter unavailable, continuing")
		} else if locked {
			s.loginFailed(ctx, email, "locked")
			return "", fmt.Errorf("%w: bad credentials", domain.ErrUnauthorised)
		}
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.loginFailed(ctx, email, "unknown_user")
		return "", fmt.Errorf("%w: bad credentials", domain.ErrUnauthorised)
	}
	if err != nil {
		return "", fmt.Errorf("authenticate: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.loginFailed(ctx, email, "bad_password")
		return "", fmt.Errorf("%w: bad credentials", domain.ErrUnauthorised)
	}
	if !user.CanAuthenticate() {
		s.loginFailed(ctx, email, "account_unavailable")
		return "", fmt.Errorf("%w: bad credentials", domain.ErrUnauthorised)
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, email); err != nil {
			s.log.Warn().Err(err).Str("email", email).Msg("failed to reset login attempts")
		}
	}
	s.record(domain.AuditLoginSucceeded, email, email, nil)

	token, err := s.tokens.Issue(user, nil)
	if err != nil {
		return "", fmt.Errorf("authenticate: %w", err)
	}
	return token, nil
}

func (s *userService) loginFailed(ctx context.Context, email, reason string) {
	s.log.Debug().Str("email", email).Str("reason", reason).Msg("login rejected")
	if s.limiter != nil && reason != "locked" {
		locked, err := s.limiter.RecordFailure(ctx, email)
		if err != nil {
			s.log.Warn().Err(err).Str("email", email).Msg("failed to record login failure")
		} else if locked {
			s.log.Info().Str("email", email).Msg("login locked after repeated failures")
		}
	}
	s.record(domain.AuditLoginFailed, email, email, map[string][]string{"reason": {reason}})
}

// Register creates a user with the requested roles and permissions and
// issues a token for it.
func (s *userService) Register(ctx context.Context, caller *domain.Principal, in ports.RegisterInput) (string, error) {
	exists, err := s.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return "", fmt.Errorf("register: %w", err)
	}
	if exists {
		s.log.Debug().Str("email", in.Email).Msg("user already registered")
		return "", domain.ErrUserAlreadyRegistered
	}

	roles, err := s.roles.GetRoles(ctx, in.Roles)
	if err != nil {
		return "", err
	}
	perms, err := s.perms.GetPermissions(ctx, in.Permissions)
	if err != nil {
		return "", err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return "", fmt.Errorf("register: hash password: %w", err)
	}

	now := s.clock.Now().UTC()
	user := domain.NewUser(in.Email, hash, in.Firstname, in.Lastname)
	user.AddRoles(roles...)
	user.AddPermissions(perms...)
	user.CreatedAt = now
	user.UpdatedAt = now

	saved, err := s.users.Save(ctx, user)
	if err != nil {
		return "", fmt.Errorf("register: %w", err)
	}
	s.log.Info().Str("email", saved.Email).Strs("roles", saved.RoleNames()).Msg("user registered")
	s.record(domain.AuditUserRegistered, actorOf(caller), saved.Email, map[string][]string{
		"roles":       saved.RoleNames(),
		"permissions": saved.Permissions().Names(),
	})

	token, err := s.tokens.Issue(saved, nil)
	if err != nil {
		return "", fmt.Errorf("register: %w", err)
	}
	return token, nil
}

func (s *userService) GetUser(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", email, err)
	}
	return user, nil
}

// DeleteUser removes the user. Deleting oneself is rejected before the user
// is even looked up.
func (s *userService) DeleteUser(ctx context.Context, caller *domain.Principal, email string) error {
	if err := s.checkNotSelf(caller, email, domain.ErrCannotDeleteSelf); err != nil {
		return err
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if !exists {
		return fmt.Errorf("delete user %s: %w", email, domain.ErrUserNotFound)
	}
	if err := s.users.DeleteByEmail(ctx, email); err != nil {
		return fmt.Errorf("delete user %s: %w", email, err)
	}

	s.log.Info().Str("email", email).Str("actor", caller.Email).Msg("user deleted")
	s.record(domain.AuditUserDeleted, caller.Email, email, nil)
	return nil
}

// ResetPassword replaces the password hash. Resetting one's own password is
// allowed here; the route decides who may call it.
func (s *userService) ResetPassword(ctx context.Context, caller *domain.Principal, email, password string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("reset password: hash: %w", err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.clock.Now().UTC()

	if _, err := s.users.Save(ctx, user); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	s.record(domain.AuditPasswordReset, actorOf(caller), email, nil)
	return nil
}

// UpdatePermissions adds then removes roles and permissions on the target
// user and saves it once. An empty request does nothing at all.
func (s *userService) UpdatePermissions(ctx context.Context, caller *domain.Principal, in ports.UpdatePermissionsInput) error {
	if err := s.checkNotSelf(caller, in.Email, domain.ErrCannotAssignPermissionsToSelf); err != nil {
		return err
	}
	if in.Add.Empty() && in.Remove.Empty() {
		return nil
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return fmt.Errorf("update permissions: %w", err)
	}

	if !in.Add.Empty() {
		roles, perms, err := s.resolveChange(ctx, in.Add)
		if err != nil {
			return err
		}
		user.AddRoles(roles...)
		user.AddPermissions(perms...)
	}
	if !in.Remove.Empty() {
		roles, perms, err := s.resolveChange(ctx, in.Remove)
		if err != nil {
			return err
		}
		user.RemoveRoles(roles...)
		user.RemovePermissions(perms...)
	}
	user.UpdatedAt = s.clock.Now().UTC()

	if _, err := s.users.Save(ctx, user); err != nil {
		return fmt.Errorf("update permissions: %w", err)
	}

	details := map[string][]string{}
	if in.Add != nil {
		details["add_roles"] = in.Add.Roles
		details["add_permissions"] = in.Add.Permissions
	}
	if in.Remove != nil {
		details["remove_roles"] = in.Remove.Roles
		details["remove_permissions"] = in.Remove.Permissions
	}
	s.record(domain.AuditPermissionsUpdated, caller.Email, in.Email, details)
	return nil
}

func (s *userService) resolveChange(ctx context.Context, c *ports.PermissionChange) ([]*domain.Role, []domain.Permission, error) {
	perms, err := s.perms.GetPermissions(ctx, c.Permissions)
	if err != nil {
		return nil, nil, err
	}
	roles, err := s.roles.GetRoles(ctx, c.Roles)
	if err != nil {
		return nil, nil, err
	}
	return roles, perms, nil
}

// checkNotSelf fails with rule when caller is the target. A caller without a
// usable identity means authentication let something through it should not
// have, which is an internal error.
func (s *userService) checkNotSelf(caller *domain.Principal, email string, rule *domain.BusinessRuleError) error {
	if caller == nil || caller.Email == "" {
		s.log.Error().Msg("request reached the user service without an authenticated principal")
		return fmt.Errorf("%w: principal is not an identified user", domain.ErrInternal)
	}
	if caller.Is(email) {
		s.log.Debug().Str("email", email).Str("code", rule.Code).Msg("business rule violated")
		return rule
	}
	return nil
}

func (s *userService) record(action domain.AuditAction, actor, subject string, details map[string][]string) {
	if s.audit == nil {
		return
	}
	s.audit.Enqueue(domain.AuditEvent{
		ID:        uuid.NewString(),
		Action:    action,
		Actor:     actor,
		Subject:   subject,
		Details:   details,
		Timestamp: s.clock.Now().UTC(),
	})
}

func actorOf(p *domain.Principal) string {
	if p == nil {
		return ""
	}
	return p.Email
}
