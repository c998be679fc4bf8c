package presenter

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/trace"

	"github.com/totegamma/eform-core/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

// Message answers with a human readable message and optional data.
func Message(c echo.Context, status int, msg string, data any) error {
	return c.JSON(status, messageResponse{Message: msg, Data: data})
}

func BadRequest(c echo.Context, err error) error {
	return BadRequestMessage(c, err.Error())
}

func BadRequestMessage(c echo.Context, msg string) error {
	slog.DebugContext(c.Request().Context(), "bad request", slog.String("error", msg), slog.String("module", "rest"))
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func NotFound(c echo.Context, msg string) error {
	return c.JSON(http.StatusNotFound, errorResponse{Error: msg})
}

func Forbidden(c echo.Context, msg string) error {
	return c.JSON(http.StatusForbidden, errorResponse{Error: msg})
}

func Unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: msg})
}

func Conflict(c echo.Context, msg string) error {
	return c.JSON(http.StatusConflict, errorResponse{Error: msg})
}

func InternalError(c echo.Context, err error) error {
	ctx := c.Request().Context()
	trace.SpanFromContext(ctx).RecordError(err)
	slog.ErrorContext(ctx, "internal error", slog.String("error", err.Error()), slog.String("module", "rest"))
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
}

// Error picks the status matching the domain error kind of err.
func Error(c echo.Context, err error) error {
	var (
		notFound  domain.NotFoundError
		conflict  domain.ConflictError
		forbidden domain.ForbiddenError
		invalid   domain.BadRequestError
	)
	switch {
	case errors.As(err, &notFound):
		return NotFound(c, notFound.Error())
	case errors.As(err, &conflict):
		return Conflict(c, conflict.Error())
	case errors.As(err, &forbidden):
		return Forbidden(c, forbidden.Error())
	case errors.As(err, &invalid):
		return BadRequestMessage(c, invalid.Error())
	default:
		return InternalError(c, err)
	}
}
