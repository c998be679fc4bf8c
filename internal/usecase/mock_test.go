package usecase

import (
	"context"
	"sort"

	"github.com/totegamma/eform-core/internal/domain"
)

func testFieldTypes() []domain.FieldType {
	types := make([]domain.FieldType, 0, len(domain.DefaultFieldTypes))
	for i, ft := range domain.DefaultFieldTypes {
		ft.ID = int64(i + 1)
		types = append(types, ft)
	}
	return types
}

func fieldType(kind domain.FieldKind) domain.FieldType {
	for _, ft := range testFieldTypes() {
		if ft.Value == kind {
			return ft
		}
	}
	panic("unknown kind " + kind)
}

type mockFieldTypeRepo struct{}

func (m *mockFieldTypeRepo) List(ctx context.Context) ([]domain.FieldType, error) {
	return testFieldTypes(), nil
}

func (m *mockFieldTypeRepo) Get(ctx context.Context, id int64) (domain.FieldType, error) {
	for _, ft := range testFieldTypes() {
		if ft.ID == id {
			return ft, nil
		}
	}
	return domain.FieldType{}, domain.NotFoundError{Resource: "field type"}
}

// memFormRepo keeps forms in memory and applies field plans the way the
// database layer does.
type memFormRepo struct {
	forms       map[int64]*domain.Form
	nextID      int64
	nextFieldID int64
	grants      []domain.Role
	plans       []domain.FieldPlan
	duplicated  *domain.Form
}

func newMemFormRepo(forms ...domain.Form) *memFormRepo {
	m := &memFormRepo{forms: map[int64]*domain.Form{}, nextID: 100, nextFieldID: 1000}
	for i := range forms {
		f := forms[i]
		m.forms[f.ID] = &f
	}
	return m
}

func (m *memFormRepo) view(f *domain.Form, withDeleted bool) domain.Form {
	out := *f
	out.Fields = nil
	for _, field := range f.Fields {
		if field.IsDeleted && !withDeleted {
			continue
		}
		out.Fields = append(out.Fields, field)
	}
	sort.SliceStable(out.Fields, func(i, j int) bool {
		return out.Fields[i].Rank < out.Fields[j].Rank
	})
	return out
}

func (m *memFormRepo) live(id int64) (*domain.Form, error) {
	f, ok := m.forms[id]
	if !ok || f.IsDeleted {
		return nil, domain.NotFoundError{Resource: "form"}
	}
	return f, nil
}

func (m *memFormRepo) Create(ctx context.Context, form domain.Form, grants []domain.Role) (domain.Form, error) {
	m.nextID++
	form.ID = m.nextID
	m.forms[form.ID] = &form
	m.grants = grants
	return m.view(&form, false), nil
}

func (m *memFormRepo) List(ctx context.Context) ([]domain.Form, error) {
	var forms []domain.Form
	for _, f := range m.forms {
		if !f.IsDeleted {
			forms = append(forms, m.view(f, false))
		}
	}
	return forms, nil
}

func (m *memFormRepo) Get(ctx context.Context, id int64) (domain.Form, error) {
	f, err := m.live(id)
	if err != nil {
		return domain.Form{}, err
	}
	return m.view(f, false), nil
}

func (m *memFormRepo) GetByUUID(ctx context.Context, uuid string, withDeletedFields bool) (domain.Form, error) {
	for _, f := range m.forms {
		if f.UUID == uuid && !f.IsDeleted {
			return m.view(f, withDeletedFields), nil
		}
	}
	return domain.Form{}, domain.NotFoundError{Resource: "form"}
}

func (m *memFormRepo) Update(ctx context.Context, id int64, input domain.FormInput) (domain.Form, error) {
	f, err := m.live(id)
	if err != nil {
		return domain.Form{}, err
	}
	f.Name = input.Name
	f.Description = input.Description
	return m.view(f, false), nil
}

func (m *memFormRepo) ToggleActive(ctx context.Context, id int64) (domain.Form, error) {
	f, err := m.live(id)
	if err != nil {
		return domain.Form{}, err
	}
	f.IsActive = !f.IsActive
	return m.view(f, false), nil
}

func (m *memFormRepo) SoftDelete(ctx context.Context, id int64) (domain.Form, error) {
	f, err := m.live(id)
	if err != nil {
		return domain.Form{}, err
	}
	f.IsDeleted = true
	return m.view(f, false), nil
}

func (m *memFormRepo) AddField(ctx context.Context, formID int64, field domain.Field) (domain.Field, error) {
	f, err := m.live(formID)
	if err != nil {
		return domain.Field{}, err
	}
	rank := 1
	for _, existing := range f.Fields {
		if !existing.IsDeleted {
			rank++
		}
	}
	m.nextFieldID++
	field.ID = m.nextFieldID
	field.FormID = formID
	field.Rank = rank
	f.Fields = append(f.Fields, field)
	return field, nil
}

func (m *memFormRepo) ApplyFieldPlan(ctx context.Context, formID int64, plan domain.FieldPlan) error {
	f, err := m.live(formID)
	if err != nil {
		return err
	}
	m.plans = append(m.plans, plan)

	for i := range f.Fields {
		f.Fields[i].Rank = 0
		for _, id := range plan.Delete {
			if f.Fields[i].ID == id {
				f.Fields[i].IsDeleted = true
			}
		}
		for _, u := range plan.Update {
			if f.Fields[i].ID == u.ID {
				f.Fields[i] = u
			}
		}
	}
	for _, c := range plan.Create {
		m.nextFieldID++
		c.ID = m.nextFieldID
		c.FormID = formID
		f.Fields = append(f.Fields, c)
	}
	for rank, u := range plan.Order {
		for i := range f.Fields {
			if f.Fields[i].UUID == u && !f.Fields[i].IsDeleted {
				f.Fields[i].Rank = rank + 1
			}
		}
	}
	return nil
}

func (m *memFormRepo) Duplicate(ctx context.Context, sourceID int64, dup domain.Form, grants []domain.Role) (domain.Form, error) {
	if _, err := m.live(sourceID); err != nil {
		return domain.Form{}, err
	}
	m.duplicated = &dup
	m.grants = grants
	created, _ := m.Create(ctx, dup, grants)
	return created, nil
}

type mockStoreRepo struct {
	rows    []domain.DataRow
	inserts int
	err     error
}

func (m *mockStoreRepo) InsertRows(ctx context.Context, rows []domain.DataRow) error {
	if m.err != nil {
		return m.err
	}
	m.inserts++
	for _, row := range rows {
		row.ID = int64(len(m.rows) + 1)
		row.User = domain.UserSummary{ID: row.UserID}
		m.rows = append(m.rows, row)
	}
	return nil
}

func (m *mockStoreRepo) match(filter domain.RowFilter, row domain.DataRow) bool {
	if filter.UserID != nil && row.UserID != *filter.UserID {
		return false
	}
	if filter.SessionUUID != "" && row.SessionUUID != filter.SessionUUID {
		return false
	}
	return true
}

func (m *mockStoreRepo) Rows(ctx context.Context, formID int64, filter domain.RowFilter) ([]domain.DataRow, error) {
	var rows []domain.DataRow
	for _, row := range m.rows {
		if m.match(filter, row) {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (m *mockStoreRepo) Sessions(ctx context.Context, formID int64, filter domain.RowFilter) ([]domain.Session, error) {
	seen := map[string]bool{}
	var sessions []domain.Session
	for _, row := range m.rows {
		if !m.match(filter, row) || seen[row.SessionUUID] {
			continue
		}
		seen[row.SessionUUID] = true
		sessions = append(sessions, domain.Session{SessionUUID: row.SessionUUID, CreatedAt: row.CreatedAt})
	}
	return sessions, nil
}

type mockAccess struct {
	writeErr   error
	readErr    error
	ownRows    bool
	writeCalls int
}

func (m *mockAccess) AuthorizeWrite(ctx context.Context, form domain.Form, actor domain.Actor) error {
	m.writeCalls++
	return m.writeErr
}

func (m *mockAccess) ReadScope(ctx context.Context, form domain.Form, actor domain.Actor) (domain.RowFilter, error) {
	if m.readErr != nil {
		return domain.RowFilter{}, m.readErr
	}
	if m.ownRows {
		id := actor.ID
		return domain.RowFilter{UserID: &id}, nil
	}
	return domain.RowFilter{}, nil
}

type mockPublisher struct {
	events []domain.SubmissionEvent
	err    error
}

func (m *mockPublisher) PublishSubmission(ctx context.Context, event domain.SubmissionEvent) error {
	m.events = append(m.events, event)
	return m.err
}

type mockStatisticsRepo struct {
	counts      map[int64]int64
	invalidated []int64
	err         error
}

func (m *mockStatisticsRepo) CountSessions(ctx context.Context, formID int64) (int64, error) {
	return m.counts[formID], nil
}

func (m *mockStatisticsRepo) Invalidate(ctx context.Context, formID int64) error {
	m.invalidated = append(m.invalidated, formID)
	return m.err
}
