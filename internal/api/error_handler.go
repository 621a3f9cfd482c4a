package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/rolegate/authd/internal/api/handler"
	"github.com/rolegate/authd/internal/core/domain"
)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"code": "...", "messages": [...]}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err, log, c)
		_ = c.JSON(status, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, handler.ErrorResponse) {
	var (
		rule    *domain.BusinessRuleError
		invalid *domain.InvalidValueError
		payload *handler.ValidationError
		he      *echo.HTTPError
	)

	switch {
	case errors.As(err, &payload):
		return http.StatusBadRequest, envelope("INVALID_PAYLOAD", payload.Messages...)
	case errors.As(err, &invalid):
		return http.StatusBadRequest, envelope("INVALID_PAYLOAD", invalid.Error())
	case errors.Is(err, domain.ErrPayload):
		return http.StatusBadRequest, envelope("INVALID_PAYLOAD", "Unable to read payload content")
	case errors.As(err, &rule):
		log.Debug().Str("code", rule.Code).Str("path", c.Path()).Msg("business rule violated")
		return http.StatusUnprocessableEntity, envelope(rule.Code, rule.Message)
	case errors.Is(err, domain.ErrUnauthorised):
		log.Debug().Err(err).Str("path", c.Path()).Msg("unauthorised")
		return http.StatusUnauthorized, envelope("UNAUTHORISED", "You are not authorised")
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, envelope("FORBIDDEN", "You are not allowed to perform this action")
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, envelope("NOT_FOUND", "User not found")
	case errors.As(err, &he):
		// Echo's own errors (router 404/405, oversized bodies, etc.)
		return he.Code, envelope(httpCode(he.Code), fmt.Sprintf("%v", he.Message))
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, envelope("INTERNAL_SERVER_ERROR", "An internal server error has occurred")
}

func envelope(code string, messages ...string) handler.ErrorResponse {
	return handler.ErrorResponse{Code: code, Messages: messages}
}

func httpCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusUnsupportedMediaType:
		return "INVALID_CONTENT_TYPE"
	case http.StatusUnauthorized:
		return "UNAUTHORISED"
	case http.StatusBadRequest:
		return "INVALID_PAYLOAD"
	}
	if status >= http.StatusInternalServerError {
		return "INTERNAL_SERVER_ERROR"
	}
	return "ERROR"
}
