package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/totegamma/eform-core/internal/domain"
)

var tracer = otel.Tracer("service")

const tokenIssuer = "eform"

// UserRepository resolves users into request identities.
type UserRepository interface {
	GetActor(ctx context.Context, userID int64) (domain.Actor, error)
}

type AuthService struct {
	secret []byte
	users  UserRepository
}

func NewAuthService(
	secret string,
	users UserRepository,
) *AuthService {
	return &AuthService{
		secret: []byte(secret),
		users:  users,
	}
}

// AuthJwt verifies an HS256 token and loads the actor named by its subject.
func (s *AuthService) AuthJwt(ctx context.Context, token string) (domain.Actor, error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.AuthJwt")
	defer span.End()

	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(
		token,
		&claims,
		func(t *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		span.RecordError(errors.Wrap(err, "jwt validation failed"))
		return domain.Actor{}, err
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		err := fmt.Errorf("invalid subject %q", claims.Subject)
		span.RecordError(err)
		return domain.Actor{}, err
	}

	actor, err := s.users.GetActor(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return domain.Actor{}, errors.Wrap(err, "failed to load actor")
	}

	if !actor.Profile.Value.IsValid() {
		err := fmt.Errorf("unknown profile %q", actor.Profile.Value)
		span.RecordError(err)
		return domain.Actor{}, err
	}

	return actor, nil
}

// IssueToken signs a token for userID. Used by tooling and tests; login is
// handled outside this service.
func (s *AuthService) IssueToken(userID int64, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = strconv.FormatInt(userID, 10)
	claims.Issuer = tokenIssuer
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
