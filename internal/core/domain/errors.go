package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorised = errors.New("unauthorised")
	ErrForbidden    = errors.New("access forbidden")
	ErrUserNotFound = errors.New("user not found")
	ErrRoleNotFound = errors.New("role not found")
	ErrInternal     = errors.New("internal error")
	ErrPayload      = errors.New("invalid payload")

	ErrInvalidRoleValue       = errors.New("invalid role value")
	ErrInvalidPermissionValue = errors.New("invalid permission value")
)

// Stable business rule codes.
const (
	CodeUserAlreadyRegistered         = "USER_ALREADY_REGISTERED"
	CodeCannotDeleteSelf              = "CAN_NOT_DELETE_SELF"
	CodeCannotAssignPermissionsToSelf = "CAN_NOT_ASSIGN_PERMISSIONS_TO_SELF"
)

// BusinessRuleError is a client error raised when a request breaks a
// business rule. It is never retried and never logged as a system fault.
type BusinessRuleError struct {
	Code    string
	Message string
}

func (e *BusinessRuleError) Error() string { return e.Message }

// Is matches any BusinessRuleError with the same code.
func (e *BusinessRuleError) Is(target error) bool {
	t, ok := target.(*BusinessRuleError)
	return ok && t.Code == e.Code
}

var (
	ErrUserAlreadyRegistered = &BusinessRuleError{
		Code:    CodeUserAlreadyRegistered,
		Message: "A user with this email is already registered.",
	}
	ErrCannotDeleteSelf = &BusinessRuleError{
		Code:    CodeCannotDeleteSelf,
		Message: "You can not delete yourself",
	}
	ErrCannotAssignPermissionsToSelf = &BusinessRuleError{
		Code:    CodeCannotAssignPermissionsToSelf,
		Message: "You can not update your own permissions",
	}
)

// Value kinds reported by InvalidValueError.
const (
	KindRole       = "roles"
	KindPermission = "permissions"
)

// InvalidValueError lists the requested role or permission names that could
// not be located.
type InvalidValueError struct {
	Kind    string
	Missing []string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("One or more %s could not be located: %v", e.Kind, e.Missing)
}

func (e *InvalidValueError) Unwrap() error {
	if e.Kind == KindRole {
		return ErrInvalidRoleValue
	}
	return ErrInvalidPermissionValue
}
