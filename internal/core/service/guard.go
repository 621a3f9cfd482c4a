package service

import (
	"fmt"

	"github.com/rolegate/authd/internal/core/domain"
)

// Authorize decides whether p satisfies req. A nil principal is anonymous and
// yields domain.ErrUnauthorised; an authenticated principal lacking the
// permission yields domain.ErrForbidden.
func Authorize(p *domain.Principal, req domain.Requirement) error {
	if p == nil {
		return domain.ErrUnauthorised
	}
	if req.Permission != "" && p.HasPermission(req.Permission) {
		return nil
	}
	if req.SelfPermission != "" && p.Is(req.Target) && p.HasPermission(req.SelfPermission) {
		return nil
	}
	if req.Permission == "" && req.SelfPermission == "" {
		return nil
	}
	return fmt.Errorf("%w: missing permission %s", domain.ErrForbidden, req.Permission)
}
