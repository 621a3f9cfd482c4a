package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/rolegate/authd/internal/api/middleware"
	"github.com/rolegate/authd/internal/core/domain"
)

// ctxPrincipal returns the principal injected by the Authenticate
// middleware. Handlers behind a guard always have one; a missing principal
// means the route was mounted without authentication and is rejected.
func ctxPrincipal(c echo.Context) (*domain.Principal, error) {
	p := middleware.Principal(c)
	if p == nil {
		return nil, domain.ErrUnauthorised
	}
	return p, nil
}

// bindAndValidate decodes the JSON body into req and runs the validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return &ValidationError{Messages: []string{"Unable to read payload content"}}
	}
	return c.Validate(req)
}
