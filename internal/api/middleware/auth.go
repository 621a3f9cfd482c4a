package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/rolegate/authd/internal/api/metrics"
	"github.com/rolegate/authd/internal/core/domain"
	"github.com/rolegate/authd/internal/core/ports"
)

const principalKey = "principal"

// SetPrincipal stores the authenticated principal on the request context.
func SetPrincipal(c echo.Context, p *domain.Principal) {
	c.Set(principalKey, p)
}

// Principal returns the principal resolved for this request, or nil for an
// anonymous request.
func Principal(c echo.Context) *domain.Principal {
	p, _ := c.Get(principalKey).(*domain.Principal)
	return p
}

// Authenticate resolves the bearer token once per request and stores the
// principal on the context. Requests without a bearer credential continue
// anonymously; a presented but invalid token is rejected with 401.
func Authenticate(authn ports.Authenticator, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if Principal(c) != nil {
				return next(c)
			}

			p, err := authn.ResolvePrincipal(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				metrics.TokenValidationsTotal.WithLabelValues(authn.Mode(), "invalid").Inc()
				log.Debug().Err(err).Str("path", c.Path()).Msg("bearer token rejected")
				return err
			}
			if p == nil {
				metrics.TokenValidationsTotal.WithLabelValues(authn.Mode(), "anonymous").Inc()
				return next(c)
			}

			metrics.TokenValidationsTotal.WithLabelValues(authn.Mode(), "valid").Inc()
			SetPrincipal(c, p)
			return next(c)
		}
	}
}
