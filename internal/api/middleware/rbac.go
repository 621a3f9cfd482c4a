package middleware

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/rolegate/authd/internal/api/metrics"
	"github.com/rolegate/authd/internal/core/domain"
	"github.com/rolegate/authd/internal/core/service"
)

// Check applies req to the principal of c and records the decision.
func Check(c echo.Context, req domain.Requirement) error {
	err := service.Authorize(Principal(c), req)

	decision := "allow"
	switch {
	case errors.Is(err, domain.ErrUnauthorised):
		decision = "anonymous"
	case err != nil:
		decision = "deny"
	}
	label := req.Permission
	if label == "" {
		label = "authenticated"
	}
	metrics.AuthorizationDecisionsTotal.WithLabelValues(label, decision).Inc()
	return err
}

// RequirePermission rejects requests whose principal lacks perm. Anonymous
// requests get 401, authenticated ones 403.
func RequirePermission(perm string) echo.MiddlewareFunc {
	return require(domain.RequirePermission(perm))
}

// RequireAuthenticated only demands a resolved principal.
func RequireAuthenticated() echo.MiddlewareFunc {
	return require(domain.Requirement{})
}

func require(req domain.Requirement) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := Check(c, req); err != nil {
				return err
			}
			return next(c)
		}
	}
}
