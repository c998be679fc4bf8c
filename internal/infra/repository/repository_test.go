package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/totegamma/eform-core/internal/domain"
	"github.com/totegamma/eform-core/internal/infra/database"
	"github.com/totegamma/eform-core/internal/infra/database/models"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "eform.db") + "?_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func openPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("EFORM_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("EFORM_TEST_POSTGRES_DSN is not set")
	}
	db, err := database.NewPostgres(dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	return db
}

// forEachDatabase runs fn on a migrated and seeded sqlite file, then on the
// postgres database named by EFORM_TEST_POSTGRES_DSN when it is set.
func forEachDatabase(t *testing.T, fn func(t *testing.T, db *gorm.DB)) {
	backends := []struct {
		name string
		open func(*testing.T) *gorm.DB
	}{
		{"sqlite", openSQLite},
		{"postgres", openPostgres},
	}
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			db := b.open(t)
			if err := database.Migrate(db); err != nil {
				t.Fatalf("migrate: %v", err)
			}
			if err := database.Seed(db); err != nil {
				t.Fatalf("seed: %v", err)
			}
			fn(t, db)
		})
	}
}

type fixture struct {
	db    *gorm.DB
	forms *FormRepository
	store *StoreRepository
	types map[domain.FieldKind]domain.FieldType
}

func newFixture(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	list, err := NewFieldTypeRepository(db).List(context.Background())
	if err != nil {
		t.Fatalf("field types: %v", err)
	}
	types := make(map[domain.FieldKind]domain.FieldType, len(list))
	for _, ft := range list {
		types[ft.Value] = ft
	}
	return fixture{
		db:    db,
		forms: NewFormRepository(db),
		store: NewStoreRepository(db),
		types: types,
	}
}

func (fx fixture) createForm(t *testing.T) domain.Form {
	t.Helper()
	form, err := fx.forms.Create(context.Background(), domain.Form{
		Code:     domain.NewCode(domain.CodePrefixForm),
		UUID:     uuid.NewString(),
		Name:     "Survey",
		IsActive: true,
	}, domain.WriterRoles)
	if err != nil {
		t.Fatalf("create form: %v", err)
	}
	return form
}

func (fx fixture) newField(label, slug string, kind domain.FieldKind) domain.Field {
	return domain.Field{
		Code:      domain.NewCode(domain.CodePrefixField),
		Label:     label,
		Slug:      slug,
		UUID:      uuid.NewString(),
		FieldType: fx.types[kind],
	}
}

func (fx fixture) addField(t *testing.T, formID int64, label, slug string, kind domain.FieldKind) domain.Field {
	t.Helper()
	field, err := fx.forms.AddField(context.Background(), formID, fx.newField(label, slug, kind))
	if err != nil {
		t.Fatalf("add field %s: %v", slug, err)
	}
	return field
}

func (fx fixture) live(t *testing.T, formID int64) domain.Form {
	t.Helper()
	form, err := fx.forms.Get(context.Background(), formID)
	if err != nil {
		t.Fatalf("get form: %v", err)
	}
	return form
}

func (fx fixture) countRanks(t *testing.T, formID int64) int64 {
	t.Helper()
	var n int64
	err := fx.db.Model(&models.FieldRank{}).
		Joins("JOIN fields ON fields.id = field_ranks.field_id").
		Where("fields.form_id = ?", formID).
		Count(&n).Error
	if err != nil {
		t.Fatalf("count ranks: %v", err)
	}
	return n
}

func (fx fixture) profile(t *testing.T, role domain.Role) models.Profile {
	t.Helper()
	var p models.Profile
	if err := fx.db.Where("value = ?", string(role)).Take(&p).Error; err != nil {
		t.Fatalf("profile %s: %v", role, err)
	}
	return p
}

func (fx fixture) createUser(t *testing.T, role domain.Role) models.User {
	t.Helper()
	user := models.User{
		Code:      "USR-" + uuid.NewString()[:8],
		Firstname: "Ada",
		Lastname:  "Lovelace",
		Email:     uuid.NewString() + "@example.com",
		ProfileID: fx.profile(t, role).ID,
		IsActive:  true,
	}
	if err := fx.db.Omit(clause.Associations).Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func slugs(form domain.Form) []string {
	out := make([]string, 0, len(form.Fields))
	for _, f := range form.Fields {
		out = append(out, f.Slug)
	}
	return out
}

func fieldRanks(form domain.Form) []int {
	out := make([]int, 0, len(form.Fields))
	for _, f := range form.Fields {
		out = append(out, f.Rank)
	}
	return out
}

func TestAddFieldRanksLast(t *testing.T) {
	forEachDatabase(t, func(t *testing.T, db *gorm.DB) {
		fx := newFixture(t, db)
		form := fx.createForm(t)

		fx.addField(t, form.ID, "Nom", "nom", domain.KindSimpleText)
		fx.addField(t, form.ID, "Age", "age", domain.KindInteger)
		third := fx.addField(t, form.ID, "Ville", "ville", domain.KindSimpleText)
		if third.Rank != 3 || third.ID == 0 {
			t.Fatalf("expected the third field ranked 3, got %+v", third)
		}

		got := fx.live(t, form.ID)
		if !reflect.DeepEqual(slugs(got), []string{"nom", "age", "ville"}) {
			t.Fatalf("unexpected order %v", slugs(got))
		}
		if !reflect.DeepEqual(fieldRanks(got), []int{1, 2, 3}) {
			t.Fatalf("unexpected ranks %v", fieldRanks(got))
		}
		if got.Fields[1].FieldType.Value != domain.KindInteger {
			t.Fatalf("field type not loaded: %+v", got.Fields[1].FieldType)
		}

		_, err := fx.forms.AddField(context.Background(), form.ID, fx.newField("NOM", "nom", domain.KindSimpleText))
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected conflict on duplicate slug, got %v", err)
		}
		if n := fx.countRanks(t, form.ID); n != 3 {
			t.Fatalf("expected 3 rank rows, got %d", n)
		}

		_, err = fx.forms.AddField(context.Background(), form.ID+1000, fx.newField("Pays", "pays", domain.KindSimpleText))
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found form, got %v", err)
		}
	})
}

func TestApplyFieldPlanPermutesRanks(t *testing.T) {
	forEachDatabase(t, func(t *testing.T, db *gorm.DB) {
		fx := newFixture(t, db)
		ctx := context.Background()
		form := fx.createForm(t)
		nom := fx.addField(t, form.ID, "Nom", "nom", domain.KindSimpleText)
		age := fx.addField(t, form.ID, "Age", "age", domain.KindInteger)
		ville := fx.addField(t, form.ID, "Ville", "ville", domain.KindSimpleText)

		ville.Label = "Commune"
		date := fx.newField("Date", "date", domain.KindDate)
		err := fx.forms.ApplyFieldPlan(ctx, form.ID, domain.FieldPlan{
			Update: []domain.Field{ville, nom},
			Delete: []int64{age.ID},
			Create: []domain.Field{date},
			Order:  []string{ville.UUID, date.UUID, nom.UUID},
		})
		if err != nil {
			t.Fatalf("apply plan: %v", err)
		}

		got := fx.live(t, form.ID)
		if !reflect.DeepEqual(slugs(got), []string{"ville", "date", "nom"}) {
			t.Fatalf("unexpected order %v", slugs(got))
		}
		if !reflect.DeepEqual(fieldRanks(got), []int{1, 2, 3}) {
			t.Fatalf("unexpected ranks %v", fieldRanks(got))
		}
		if got.Fields[0].Label != "Commune" || got.Fields[0].Slug != "ville" {
			t.Fatalf("kept field must be relabelled only, got %+v", got.Fields[0])
		}
		if n := fx.countRanks(t, form.ID); n != 3 {
			t.Fatalf("expected 3 rank rows, got %d", n)
		}

		all, err := fx.forms.GetByUUID(ctx, form.UUID, true)
		if err != nil {
			t.Fatalf("get with deleted fields: %v", err)
		}
		last := all.Fields[len(all.Fields)-1]
		if len(all.Fields) != 4 || last.Slug != "age" || !last.IsDeleted || last.Rank != 0 {
			t.Fatalf("expected age soft deleted and unranked, got %+v", all.Fields)
		}

		// the slug of a soft deleted field is free again
		reborn := fx.newField("Age", "age", domain.KindInteger)
		current := got.Fields
		err = fx.forms.ApplyFieldPlan(ctx, form.ID, domain.FieldPlan{
			Update: current,
			Create: []domain.Field{reborn},
			Order:  []string{reborn.UUID, current[0].UUID, current[1].UUID, current[2].UUID},
		})
		if err != nil {
			t.Fatalf("reuse of a deleted slug: %v", err)
		}
		got = fx.live(t, form.ID)
		if !reflect.DeepEqual(slugs(got), []string{"age", "ville", "date", "nom"}) {
			t.Fatalf("unexpected order %v", slugs(got))
		}
	})
}

func TestApplyFieldPlanRollsBackOnDuplicateSlug(t *testing.T) {
	forEachDatabase(t, func(t *testing.T, db *gorm.DB) {
		fx := newFixture(t, db)
		form := fx.createForm(t)
		nom := fx.addField(t, form.ID, "Nom", "nom", domain.KindSimpleText)
		age := fx.addField(t, form.ID, "Age", "age", domain.KindInteger)

		clash := fx.newField("Nom bis", "nom", domain.KindSimpleText)
		err := fx.forms.ApplyFieldPlan(context.Background(), form.ID, domain.FieldPlan{
			Update: []domain.Field{age, nom},
			Create: []domain.Field{clash},
			Order:  []string{age.UUID, nom.UUID, clash.UUID},
		})
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected conflict from the unique index, got %v", err)
		}

		got := fx.live(t, form.ID)
		if !reflect.DeepEqual(slugs(got), []string{"nom", "age"}) || !reflect.DeepEqual(fieldRanks(got), []int{1, 2}) {
			t.Fatalf("failed plan must leave the form untouched, got %v %v", slugs(got), fieldRanks(got))
		}
		if n := fx.countRanks(t, form.ID); n != 2 {
			t.Fatalf("expected 2 rank rows, got %d", n)
		}
	})
}

func TestApplyFieldPlanRejectsStalePlan(t *testing.T) {
	forEachDatabase(t, func(t *testing.T, db *gorm.DB) {
		fx := newFixture(t, db)
		form := fx.createForm(t)
		nom := fx.addField(t, form.ID, "Nom", "nom", domain.KindSimpleText)
		fx.addField(t, form.ID, "Age", "age", domain.KindInteger)

		err := fx.forms.ApplyFieldPlan(context.Background(), form.ID, domain.FieldPlan{
			Update: []domain.Field{nom},
			Order:  []string{nom.UUID},
		})
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected conflict for a plan missing a live field, got %v", err)
		}
		if got := fx.live(t, form.ID); len(got.Fields) != 2 {
			t.Fatalf("stale plan must not delete fields, got %v", slugs(got))
		}
	})
}

func TestApplyEmptyPlanRemovesEveryRank(t *testing.T) {
	forEachDatabase(t, func(t *testing.T, db *gorm.DB) {
		fx := newFixture(t, db)
		ctx := context.Background()
		form := fx.createForm(t)
		var ids []int64
		for _, slug := range []string{"nom", "age", "ville"} {
			ids = append(ids, fx.addField(t, form.ID, slug, slug, domain.KindSimpleText).ID)
		}

		err := fx.forms.ApplyFieldPlan(ctx, form.ID, domain.FieldPlan{Delete: ids, Order: []string{}})
		if err != nil {
			t.Fatalf("apply plan: %v", err)
		}

		if got := fx.live(t, form.ID); len(got.Fields) != 0 {
			t.Fatalf("expected no live field, got %v", slugs(got))
		}
		if n := fx.countRanks(t, form.ID); n != 0 {
			t.Fatalf("expected no rank rows, got %d", n)
		}
		all, err := fx.forms.GetByUUID(ctx, form.UUID, true)
		if err != nil {
			t.Fatalf("get with deleted fields: %v", err)
		}
		for _, f := range all.Fields {
			if !f.IsDeleted {
				t.Fatalf("expected every field soft deleted, got %+v", f)
			}
		}
		if len(all.Fields) != 3 {
			t.Fatalf("fields must be kept for history, got %d", len(all.Fields))
		}
	})
}

func TestSessionsNewestFirst(t *testing.T) {
	forEachDatabase(t, func(t *testing.T, db *gorm.DB) {
		fx := newFixture(t, db)
		ctx := context.Background()
		form := fx.createForm(t)
		nom := fx.addField(t, form.ID, "Nom", "nom", domain.KindSimpleText)
		age := fx.addField(t, form.ID, "Age", "age", domain.KindInteger)
		ada := fx.createUser(t, domain.RoleSampler)
		bob := fx.createUser(t, domain.RoleSampler)

		t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		submit := func(session string, user int64, at time.Time, fields ...domain.Field) {
			rows := make([]domain.DataRow, 0, len(fields))
			for _, f := range fields {
				rows = append(rows, domain.DataRow{SessionUUID: session, UserID: user, FieldID: f.ID, Value: f.Slug, CreatedAt: at})
			}
			if err := fx.store.InsertRows(ctx, rows); err != nil {
				t.Fatalf("insert %s: %v", session, err)
			}
		}
		// inserted out of time order so ids and dates disagree
		submit("s2", bob.ID, t0.Add(time.Hour), nom)
		submit("s3", ada.ID, t0.Add(2*time.Hour), nom, age)
		submit("s1", ada.ID, t0, nom, age)

		sessions, err := fx.store.Sessions(ctx, form.ID, domain.RowFilter{})
		if err != nil {
			t.Fatalf("sessions: %v", err)
		}
		var order []string
		for _, s := range sessions {
			order = append(order, s.SessionUUID)
		}
		if !reflect.DeepEqual(order, []string{"s3", "s2", "s1"}) {
			t.Fatalf("expected newest first, got %v", order)
		}
		if !sessions[0].CreatedAt.Equal(t0.Add(2 * time.Hour)) {
			t.Fatalf("unexpected session date %v", sessions[0].CreatedAt)
		}

		own, err := fx.store.Sessions(ctx, form.ID, domain.RowFilter{UserID: &ada.ID})
		if err != nil || len(own) != 2 || own[0].SessionUUID != "s3" || own[1].SessionUUID != "s1" {
			t.Fatalf("expected ada's sessions only, got %+v (%v)", own, err)
		}

		rows, err := fx.store.Rows(ctx, form.ID, domain.RowFilter{})
		if err != nil {
			t.Fatalf("rows: %v", err)
		}
		if len(rows) != 5 || rows[0].SessionUUID != "s1" || rows[4].SessionUUID != "s3" {
			t.Fatalf("rows must follow submission time, got %+v", rows)
		}
		if rows[0].User.Email != ada.Email {
			t.Fatalf("expected the user to be loaded, got %+v", rows[0].User)
		}

		one, err := fx.store.Rows(ctx, form.ID, domain.RowFilter{SessionUUID: "s2"})
		if err != nil || len(one) != 1 || one[0].UserID != bob.ID {
			t.Fatalf("expected the single row of s2, got %+v (%v)", one, err)
		}

		count, err := NewStatisticsRepository(db, nil).CountSessions(ctx, form.ID)
		if err != nil || count != 3 {
			t.Fatalf("expected 3 sessions, got %d (%v)", count, err)
		}
	})
}

func TestInsertRowsIsAtomic(t *testing.T) {
	forEachDatabase(t, func(t *testing.T, db *gorm.DB) {
		fx := newFixture(t, db)
		ctx := context.Background()
		form := fx.createForm(t)
		nom := fx.addField(t, form.ID, "Nom", "nom", domain.KindSimpleText)
		ada := fx.createUser(t, domain.RoleSampler)

		err := fx.store.InsertRows(ctx, []domain.DataRow{
			{SessionUUID: "s1", UserID: ada.ID, FieldID: nom.ID, Value: "Ada"},
			{SessionUUID: "s1", UserID: ada.ID, FieldID: nom.ID + 1000, Value: "orphan"},
		})
		if err == nil {
			t.Fatalf("expected the foreign key to reject the second row")
		}

		rows, err := fx.store.Rows(ctx, form.ID, domain.RowFilter{})
		if err != nil || len(rows) != 0 {
			t.Fatalf("expected no row kept, got %+v (%v)", rows, err)
		}
	})
}

func TestDuplicateKeepsGrantState(t *testing.T) {
	forEachDatabase(t, func(t *testing.T, db *gorm.DB) {
		fx := newFixture(t, db)
		ctx := context.Background()
		form := fx.createForm(t)
		fx.addField(t, form.ID, "Nom", "nom", domain.KindSimpleText)
		fx.addField(t, form.ID, "Age", "age", domain.KindInteger)
		sampler := fx.profile(t, domain.RoleSampler)
		supervisor := fx.profile(t, domain.RoleSupervisor)

		err := db.Model(&models.FormPermission{}).
			Where("form_id = ? AND profile_id = ?", form.ID, sampler.ID).
			Update("is_active", false).Error
		if err != nil {
			t.Fatalf("revoke: %v", err)
		}

		source := fx.live(t, form.ID)
		sourceID := source.ID
		dup := domain.Form{
			Code:           domain.NewCode(domain.CodePrefixForm),
			UUID:           uuid.NewString(),
			Name:           source.Name + " - Copy",
			IsActive:       true,
			DuplicatedFrom: &sourceID,
		}
		for i, f := range source.Fields {
			f.ID = 0
			f.UUID = uuid.NewString()
			f.Rank = i + 1
			dup.Fields = append(dup.Fields, f)
		}

		created, err := fx.forms.Duplicate(ctx, source.ID, dup, domain.WriterRoles)
		if err != nil {
			t.Fatalf("duplicate: %v", err)
		}
		if !reflect.DeepEqual(slugs(created), []string{"nom", "age"}) || !reflect.DeepEqual(fieldRanks(created), []int{1, 2}) {
			t.Fatalf("unexpected copied fields %v %v", slugs(created), fieldRanks(created))
		}
		if created.DuplicatedFrom == nil || *created.DuplicatedFrom != source.ID {
			t.Fatalf("expected the source to be recorded, got %v", created.DuplicatedFrom)
		}

		perms := NewPermissionRepository(db)
		revoked, err := perms.GetFormPermission(ctx, created.ID, sampler.ID)
		if err != nil || revoked.IsActive {
			t.Fatalf("a revoked grant must stay revoked, got %+v (%v)", revoked, err)
		}
		kept, err := perms.GetFormPermission(ctx, created.ID, supervisor.ID)
		if err != nil || !kept.IsActive {
			t.Fatalf("an active grant must stay active, got %+v (%v)", kept, err)
		}
	})
}
