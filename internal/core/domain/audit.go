package domain

import "time"

// AuditAction names a security relevant event.
type AuditAction string

const (
	AuditLoginSucceeded     AuditAction = "login_succeeded"
	AuditLoginFailed        AuditAction = "login_failed"
	AuditUserRegistered     AuditAction = "user_registered"
	AuditUserDeleted        AuditAction = "user_deleted"
	AuditPasswordReset      AuditAction = "password_reset"
	AuditPermissionsUpdated AuditAction = "permissions_updated"
)

// AuditEvent records who did what to which account.
type AuditEvent struct {
	ID        string
	Action    AuditAction
	Actor     string // empty for anonymous callers
	Subject   string // the account acted upon
	Details   map[string][]string
	Timestamp time.Time
}
