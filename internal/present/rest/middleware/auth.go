package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/eform-core/internal/domain"
	"github.com/totegamma/eform-core/internal/present/rest/presenter"
)

var tracer = otel.Tracer("auth")

// Authenticator turns a bearer token into an actor.
type Authenticator interface {
	AuthJwt(ctx context.Context, token string) (domain.Actor, error)
}

type AuthMiddleware struct {
	auth Authenticator
}

func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{
		auth: auth,
	}
}

// IdentifyIdentity attaches the actor of a valid bearer token to the request
// context. Requests without one pass through anonymous.
func (s *AuthMiddleware) IdentifyIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.Service.IdentifyIdentity")
		defer span.End()

		authHeader := c.Request().Header.Get("authorization")

		if authHeader != "" {
			split := strings.Split(authHeader, " ")
			if len(split) != 2 {
				span.RecordError(fmt.Errorf("invalid authentication header"))
				goto skipCheckAuthorization
			}

			authType, token := split[0], split[1]
			if authType != "Bearer" {
				span.RecordError(fmt.Errorf("only Bearer is acceptable"))
				goto skipCheckAuthorization
			}

			actor, err := s.auth.AuthJwt(ctx, token)
			if err != nil {
				span.RecordError(errors.Wrap(err, "AuthMiddleware.IdentifyIdentity: s.auth.AuthJwt failed"))
				goto skipCheckAuthorization
			}

			ctx = context.WithValue(ctx, domain.RequesterCtxKey, actor)
			span.SetAttributes(
				attribute.Int64("RequesterId", actor.ID),
				attribute.String("RequesterProfile", string(actor.Profile.Value)),
			)
		}

	skipCheckAuthorization:
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// Actor returns the identity set by IdentifyIdentity.
func Actor(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(domain.RequesterCtxKey).(domain.Actor)
	return actor, ok
}

// Require rejects anonymous requests and actors whose role lacks perm.
func Require(perm domain.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := Actor(c.Request().Context())
			if !ok {
				return presenter.Unauthorized(c, "authentication required")
			}
			if !actor.Profile.Value.Can(perm) {
				return presenter.Forbidden(c, fmt.Sprintf("permission %s denied", perm))
			}
			return next(c)
		}
	}
}
