package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/eform-core/internal/domain"
	"github.com/totegamma/eform-core/internal/schema"
)

var tracer = otel.Tracer("store")

var errFormDisabled = domain.ForbiddenError{Reason: "form is disabled"}

type StoreUsecase struct {
	forms     FormRepository
	repo      StoreRepository
	access    AccessGate
	counts    StatisticsRepository
	publisher SubmissionPublisher
}

// NewStoreUsecase wires the storage engine. counts and publisher may be nil.
func NewStoreUsecase(
	forms FormRepository,
	repo StoreRepository,
	access AccessGate,
	counts StatisticsRepository,
	publisher SubmissionPublisher,
) *StoreUsecase {
	return &StoreUsecase{
		forms:     forms,
		repo:      repo,
		access:    access,
		counts:    counts,
		publisher: publisher,
	}
}

// Save validates data against the form and appends it as a new session.
// Authorization runs before validation, and nothing is written unless both pass.
func (uc *StoreUsecase) Save(ctx context.Context, formUUID string, data map[string]any, actor domain.Actor) (domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Store.Usecase.Save")
	defer span.End()

	form, err := uc.forms.GetByUUID(ctx, formUUID, false)
	if err != nil {
		span.RecordError(err)
		return domain.Session{}, err
	}
	if !form.IsActive {
		return domain.Session{}, errFormDisabled
	}

	err = uc.access.AuthorizeWrite(ctx, form, actor)
	if err != nil {
		span.RecordError(err)
		return domain.Session{}, err
	}

	result := schema.ControlData(data, schema.Compile(form.Fields))
	if !result.Success {
		return domain.Session{}, domain.BadRequestError{Message: result.Message}
	}

	session := domain.Session{
		SessionUUID: uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
	}

	rows := make([]domain.DataRow, 0, len(form.Fields))
	for _, f := range form.Fields {
		value, ok := data[f.Slug]
		if !ok {
			continue
		}
		rows = append(rows, domain.DataRow{
			SessionUUID: session.SessionUUID,
			UserID:      actor.ID,
			FieldID:     f.ID,
			Value:       FormatValue(value),
			CreatedAt:   session.CreatedAt,
		})
	}
	if len(rows) == 0 {
		return domain.Session{}, domain.BadRequestError{Message: "no field of the form is present in data"}
	}

	err = uc.repo.InsertRows(ctx, rows)
	if err != nil {
		span.RecordError(err)
		return domain.Session{}, err
	}

	span.SetAttributes(
		attribute.String("FormUUID", form.UUID),
		attribute.String("SessionUUID", session.SessionUUID),
		attribute.Int("Rows", len(rows)),
	)

	if uc.counts != nil {
		if err := uc.counts.Invalidate(ctx, form.ID); err != nil {
			slog.WarnContext(
				ctx, "failed to invalidate submission count",
				slog.String("error", err.Error()),
				slog.String("form", form.UUID),
				slog.String("module", "store"),
			)
		}
	}

	if uc.publisher != nil {
		event := domain.SubmissionEvent{
			FormUUID:    form.UUID,
			SessionUUID: session.SessionUUID,
			UserID:      actor.ID,
			Fields:      len(rows),
			CreatedAt:   session.CreatedAt,
		}
		if err := uc.publisher.PublishSubmission(ctx, event); err != nil {
			slog.WarnContext(
				ctx, "failed to publish submission",
				slog.String("error", err.Error()),
				slog.String("session", session.SessionUUID),
				slog.String("module", "store"),
			)
		}
	}

	return session, nil
}

// Show reassembles the visible submissions of a form, optionally a single session.
func (uc *StoreUsecase) Show(ctx context.Context, formUUID string, actor domain.Actor, sessionUUID string) ([]domain.Record, error) {
	ctx, span := tracer.Start(ctx, "Store.Usecase.Show")
	defer span.End()

	form, filter, err := uc.readable(ctx, formUUID, actor, true)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	filter.SessionUUID = sessionUUID

	rows, err := uc.repo.Rows(ctx, form.ID, filter)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return Reconstruct(form.Fields, rows), nil
}

// ListSessions returns the visible sessions of a form, newest first.
func (uc *StoreUsecase) ListSessions(ctx context.Context, formUUID string, actor domain.Actor) ([]domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Store.Usecase.ListSessions")
	defer span.End()

	form, filter, err := uc.readable(ctx, formUUID, actor, false)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return uc.repo.Sessions(ctx, form.ID, filter)
}

// ReadScope resolves which submissions of the form actor may read.
// It applies the same checks as Show.
func (uc *StoreUsecase) ReadScope(ctx context.Context, formUUID string, actor domain.Actor) (domain.RowFilter, error) {
	_, filter, err := uc.readable(ctx, formUUID, actor, false)
	return filter, err
}

func (uc *StoreUsecase) readable(ctx context.Context, formUUID string, actor domain.Actor, withDeletedFields bool) (domain.Form, domain.RowFilter, error) {
	form, err := uc.forms.GetByUUID(ctx, formUUID, withDeletedFields)
	if err != nil {
		return domain.Form{}, domain.RowFilter{}, err
	}
	if !form.IsActive {
		return domain.Form{}, domain.RowFilter{}, errFormDisabled
	}

	filter, err := uc.access.ReadScope(ctx, form, actor)
	if err != nil {
		return domain.Form{}, domain.RowFilter{}, err
	}

	return form, filter, nil
}

// Reconstruct groups rows by session, in the order sessions first appear.
// Each record carries the session metadata followed by every value twice:
// under the field label and under "slug_" + the field slug.
func Reconstruct(fields []domain.Field, rows []domain.DataRow) []domain.Record {
	byID := make(map[int64]domain.Field, len(fields))
	position := make(map[int64]int, len(fields))
	for i, f := range orderFields(fields) {
		byID[f.ID] = f
		position[f.ID] = i
	}

	type group struct {
		first domain.DataRow
		rows  []domain.DataRow
	}

	var groups []*group
	index := make(map[string]*group)
	for _, row := range rows {
		if _, ok := byID[row.FieldID]; !ok {
			continue
		}
		g, ok := index[row.SessionUUID]
		if !ok {
			g = &group{first: row}
			index[row.SessionUUID] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, row)
	}

	records := make([]domain.Record, 0, len(groups))
	for _, g := range groups {
		sort.SliceStable(g.rows, func(i, j int) bool {
			return position[g.rows[i].FieldID] < position[g.rows[j].FieldID]
		})

		record := domain.Record{}
		record.Set("sessionUuid", g.first.SessionUUID)
		record.Set("createdAt", g.first.CreatedAt)
		record.Set("user", g.first.User)
		for _, row := range g.rows {
			f := byID[row.FieldID]
			record.Set(f.Label, row.Value)
			record.Set("slug_"+f.Slug, row.Value)
		}
		records = append(records, record)
	}

	return records
}

// orderFields puts live fields first by rank, then deleted ones by id.
func orderFields(fields []domain.Field) []domain.Field {
	ordered := make([]domain.Field, len(fields))
	copy(ordered, fields)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.IsDeleted != b.IsDeleted {
			return !a.IsDeleted
		}
		if a.IsDeleted {
			return a.ID < b.ID
		}
		if a.Rank == 0 || b.Rank == 0 {
			return a.Rank != 0 && b.Rank == 0
		}
		return a.Rank < b.Rank
	})
	return ordered
}

// FormatValue renders a validated payload value as stored in a DataRow.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}
