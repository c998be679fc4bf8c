package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/eform-core/internal/domain"
)

var (
	errProfileNotAuthorized = domain.ForbiddenError{Reason: "profile not authorized"}
	errTeamNotAuthorized    = domain.ForbiddenError{Reason: "team not authorized"}
)

// PermissionRepository exposes the per-form grants and team memberships.
type PermissionRepository interface {
	GetFormPermission(ctx context.Context, formID, profileID int64) (domain.FormPermission, error)
	HasTeamScope(ctx context.Context, formID, userID int64) (bool, error)
}

type AccessService struct {
	repo PermissionRepository
}

func NewAccessService(repo PermissionRepository) *AccessService {
	return &AccessService{repo: repo}
}

// AuthorizeWrite requires an active grant for the actor's profile and
// membership in an active team of a project the form belongs to.
func (s *AccessService) AuthorizeWrite(ctx context.Context, form domain.Form, actor domain.Actor) error {
	ctx, span := tracer.Start(ctx, "Access.Service.AuthorizeWrite")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("FormID", form.ID),
		attribute.Int64("ActorID", actor.ID),
	)

	err := s.checkGrant(ctx, form, actor)
	if err != nil {
		span.RecordError(err)
		return err
	}

	ok, err := s.repo.HasTeamScope(ctx, form.ID, actor.ID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !ok {
		return errTeamNotAuthorized
	}

	return nil
}

// ReadScope returns the row filter applying to the actor. Elevated roles read
// every session, the others need a grant and only read their own rows.
func (s *AccessService) ReadScope(ctx context.Context, form domain.Form, actor domain.Actor) (domain.RowFilter, error) {
	ctx, span := tracer.Start(ctx, "Access.Service.ReadScope")
	defer span.End()

	if actor.Profile.Value.IsElevated() {
		return domain.RowFilter{}, nil
	}

	err := s.checkGrant(ctx, form, actor)
	if err != nil {
		span.RecordError(err)
		return domain.RowFilter{}, err
	}

	userID := actor.ID
	return domain.RowFilter{UserID: &userID}, nil
}

func (s *AccessService) checkGrant(ctx context.Context, form domain.Form, actor domain.Actor) error {
	permission, err := s.repo.GetFormPermission(ctx, form.ID, actor.Profile.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errProfileNotAuthorized
		}
		return err
	}
	if !permission.IsActive {
		return errProfileNotAuthorized
	}
	return nil
}
