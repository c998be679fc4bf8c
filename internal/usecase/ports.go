package usecase

import (
	"context"

	"github.com/totegamma/eform-core/internal/domain"
)

// FieldTypeRepository reads the field type registry.
type FieldTypeRepository interface {
	List(ctx context.Context) ([]domain.FieldType, error)
	Get(ctx context.Context, id int64) (domain.FieldType, error)
}

// FormRepository defines persistence for forms and their fields.
// Getters only return non-deleted forms; fields carry their active rank.
type FormRepository interface {
	Create(ctx context.Context, form domain.Form, grants []domain.Role) (domain.Form, error)
	List(ctx context.Context) ([]domain.Form, error)
	Get(ctx context.Context, id int64) (domain.Form, error)
	GetByUUID(ctx context.Context, uuid string, withDeletedFields bool) (domain.Form, error)
	Update(ctx context.Context, id int64, input domain.FormInput) (domain.Form, error)
	ToggleActive(ctx context.Context, id int64) (domain.Form, error)
	SoftDelete(ctx context.Context, id int64) (domain.Form, error)
	AddField(ctx context.Context, formID int64, field domain.Field) (domain.Field, error)
	ApplyFieldPlan(ctx context.Context, formID int64, plan domain.FieldPlan) error
	Duplicate(ctx context.Context, sourceID int64, dup domain.Form, grants []domain.Role) (domain.Form, error)
}

// StoreRepository defines the append-only data row log.
type StoreRepository interface {
	InsertRows(ctx context.Context, rows []domain.DataRow) error
	Rows(ctx context.Context, formID int64, filter domain.RowFilter) ([]domain.DataRow, error)
	Sessions(ctx context.Context, formID int64, filter domain.RowFilter) ([]domain.Session, error)
}

// StatisticsRepository counts submissions for the statistics collaborator.
// Invalidate drops any cached count of the form.
type StatisticsRepository interface {
	CountSessions(ctx context.Context, formID int64) (int64, error)
	Invalidate(ctx context.Context, formID int64) error
}

// AccessGate resolves per-form grants and team scope for an actor.
type AccessGate interface {
	AuthorizeWrite(ctx context.Context, form domain.Form, actor domain.Actor) error
	ReadScope(ctx context.Context, form domain.Form, actor domain.Actor) (domain.RowFilter, error)
}

// SubmissionPublisher announces committed submissions.
type SubmissionPublisher interface {
	PublishSubmission(ctx context.Context, event domain.SubmissionEvent) error
}
