package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/eform-core/internal/domain"
	"github.com/totegamma/eform-core/internal/infra/database/models"
)

var errFieldsChanged = domain.ConflictError{Reason: "the fields of the form changed, reload and retry"}

type FormRepository struct {
	db *gorm.DB
}

func NewFormRepository(db *gorm.DB) *FormRepository {
	return &FormRepository{db: db}
}

func withFields(db *gorm.DB, withDeleted bool) *gorm.DB {
	if withDeleted {
		db = db.Preload("Fields")
	} else {
		db = db.Preload("Fields", "is_deleted = ?", false)
	}
	return db.Preload("Fields.FieldType").Preload("Fields.Rank")
}

func getForm(ctx context.Context, db *gorm.DB, id int64) (domain.Form, error) {
	var form models.Form
	err := withFields(db.WithContext(ctx), false).
		Where("id = ? AND is_deleted = ?", id, false).
		Take(&form).Error
	if err != nil {
		return domain.Form{}, translateError(err, "form")
	}
	return formFromModel(form), nil
}

// lockForm takes a row lock on a non-deleted form for the rest of tx.
func lockForm(tx *gorm.DB, id int64) error {
	var form models.Form
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND is_deleted = ?", id, false).
		Take(&form).Error
	return translateError(err, "form")
}

// grantForm gives every profile of roles an active permission on the form.
// When source is set, the grant state is copied from that form instead.
func grantForm(tx *gorm.DB, formID int64, roles []domain.Role, source *int64) error {
	values := make([]string, 0, len(roles))
	for _, r := range roles {
		values = append(values, string(r))
	}

	var profiles []models.Profile
	err := tx.Where("value IN ?", values).Find(&profiles).Error
	if err != nil {
		return err
	}

	active := make(map[int64]bool, len(profiles))
	if source != nil {
		var perms []models.FormPermission
		err := tx.Where("form_id = ?", *source).Find(&perms).Error
		if err != nil {
			return err
		}
		for _, p := range perms {
			active[p.ProfileID] = p.IsActive
		}
	}

	for _, p := range profiles {
		isActive, ok := active[p.ID]
		if !ok {
			isActive = true
		}
		// a map keeps an explicit false from being replaced by the column default
		err := tx.Model(&models.FormPermission{}).Create(map[string]any{
			"form_id":    formID,
			"profile_id": p.ID,
			"is_active":  isActive,
		}).Error
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *FormRepository) Create(ctx context.Context, form domain.Form, grants []domain.Role) (domain.Form, error) {
	var created domain.Form
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.Form{
			Code:        form.Code,
			UUID:        form.UUID,
			Name:        form.Name,
			Description: form.Description,
			IsActive:    true,
		}
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			return translateError(err, "form")
		}

		if err := grantForm(tx, row.ID, grants, nil); err != nil {
			return err
		}

		var err error
		created, err = getForm(ctx, tx, row.ID)
		return err
	})
	if err != nil {
		return domain.Form{}, translateError(err, "form")
	}
	return created, nil
}

func (r *FormRepository) List(ctx context.Context) ([]domain.Form, error) {
	var rows []models.Form
	err := withFields(r.db.WithContext(ctx), false).
		Where("is_deleted = ?", false).
		Order("c_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err, "form")
	}

	forms := make([]domain.Form, 0, len(rows))
	for _, row := range rows {
		forms = append(forms, formFromModel(row))
	}
	return forms, nil
}

func (r *FormRepository) Get(ctx context.Context, id int64) (domain.Form, error) {
	return getForm(ctx, r.db, id)
}

func (r *FormRepository) GetByUUID(ctx context.Context, uuid string, withDeletedFields bool) (domain.Form, error) {
	var form models.Form
	err := withFields(r.db.WithContext(ctx), withDeletedFields).
		Where("uuid = ? AND is_deleted = ?", uuid, false).
		Take(&form).Error
	if err != nil {
		return domain.Form{}, translateError(err, "form")
	}
	return formFromModel(form), nil
}

func (r *FormRepository) Update(ctx context.Context, id int64, input domain.FormInput) (domain.Form, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Form{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]any{
			"name":        input.Name,
			"description": input.Description,
		})
	if result.Error != nil {
		return domain.Form{}, translateError(result.Error, "form")
	}
	if result.RowsAffected == 0 {
		return domain.Form{}, domain.NotFoundError{Resource: "form"}
	}
	return r.Get(ctx, id)
}

func (r *FormRepository) ToggleActive(ctx context.Context, id int64) (domain.Form, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Form{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Update("is_active", gorm.Expr("NOT is_active"))
	if result.Error != nil {
		return domain.Form{}, translateError(result.Error, "form")
	}
	if result.RowsAffected == 0 {
		return domain.Form{}, domain.NotFoundError{Resource: "form"}
	}
	return r.Get(ctx, id)
}

func (r *FormRepository) SoftDelete(ctx context.Context, id int64) (domain.Form, error) {
	form, err := r.Get(ctx, id)
	if err != nil {
		return domain.Form{}, err
	}

	result := r.db.WithContext(ctx).
		Model(&models.Form{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Update("is_deleted", true)
	if result.Error != nil {
		return domain.Form{}, translateError(result.Error, "form")
	}
	if result.RowsAffected == 0 {
		return domain.Form{}, domain.NotFoundError{Resource: "form"}
	}

	form.IsDeleted = true
	return form, nil
}

// AddField inserts the field and ranks it last. The form row stays locked
// until commit so concurrent additions to one form are serialized.
func (r *FormRepository) AddField(ctx context.Context, formID int64, field domain.Field) (domain.Field, error) {
	var created models.Field
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForm(tx, formID); err != nil {
			return err
		}

		var taken int64
		err := tx.Model(&models.Field{}).
			Where("form_id = ? AND slug = ? AND is_deleted = ?", formID, field.Slug, false).
			Count(&taken).Error
		if err != nil {
			return err
		}
		if taken > 0 {
			return errFieldExists
		}

		var active int64
		err = tx.Model(&models.Field{}).
			Where("form_id = ? AND is_deleted = ?", formID, false).
			Count(&active).Error
		if err != nil {
			return err
		}

		created = fieldToModel(field, formID)
		if err := tx.Omit(clause.Associations).Create(&created).Error; err != nil {
			return translateError(err, "field")
		}

		rank := models.FieldRank{
			FieldID: created.ID,
			Rank:    int(active) + 1,
		}
		if err := tx.Omit(clause.Associations).Create(&rank).Error; err != nil {
			return err
		}
		created.Rank = &rank

		return nil
	})
	if err != nil {
		return domain.Field{}, translateError(err, "field")
	}

	result := fieldFromModel(created)
	result.FieldType = field.FieldType
	return result, nil
}

// ApplyFieldPlan runs a whole field reconciliation in one transaction: the
// removed fields are soft-deleted, the kept ones updated, the new ones created,
// and every rank of the form is rebuilt from plan.Order.
func (r *FormRepository) ApplyFieldPlan(ctx context.Context, formID int64, plan domain.FieldPlan) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForm(tx, formID); err != nil {
			return err
		}

		var live []models.Field
		err := tx.Select("id", "uuid").
			Where("form_id = ? AND is_deleted = ?", formID, false).
			Find(&live).Error
		if err != nil {
			return err
		}
		liveIDs := make(map[int64]struct{}, len(live))
		for _, f := range live {
			liveIDs[f.ID] = struct{}{}
		}
		if len(live) != len(plan.Update)+len(plan.Delete) {
			return errFieldsChanged
		}
		for _, f := range plan.Update {
			if _, ok := liveIDs[f.ID]; !ok {
				return errFieldsChanged
			}
		}
		for _, id := range plan.Delete {
			if _, ok := liveIDs[id]; !ok {
				return errFieldsChanged
			}
		}

		err = tx.Where("field_id IN (?)",
			tx.Model(&models.Field{}).Select("id").Where("form_id = ?", formID),
		).Delete(&models.FieldRank{}).Error
		if err != nil {
			return err
		}

		if len(plan.Delete) > 0 {
			err := tx.Model(&models.Field{}).
				Where("form_id = ? AND id IN ?", formID, plan.Delete).
				Updates(map[string]any{
					"is_deleted": true,
					"deleted_at": time.Now(),
				}).Error
			if err != nil {
				return err
			}
		}

		ids := make(map[string]int64, len(plan.Order))
		for _, f := range plan.Update {
			err := tx.Model(&models.Field{}).
				Where("id = ? AND form_id = ?", f.ID, formID).
				Updates(map[string]any{
					"label":         f.Label,
					"description":   f.Description,
					"optional":      f.Optional,
					"default_value": f.DefaultValue,
					"example_value": f.ExampleValue,
					"select_values": f.SelectValues,
				}).Error
			if err != nil {
				return translateError(err, "field")
			}
			ids[f.UUID] = f.ID
		}

		for _, f := range plan.Create {
			row := fieldToModel(f, formID)
			if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
				return translateError(err, "field")
			}
			ids[f.UUID] = row.ID
		}

		ranks := make([]models.FieldRank, 0, len(plan.Order))
		for i, u := range plan.Order {
			id, ok := ids[u]
			if !ok {
				return errFieldsChanged
			}
			ranks = append(ranks, models.FieldRank{FieldID: id, Rank: i + 1})
		}
		if len(ranks) > 0 {
			if err := tx.Omit(clause.Associations).Create(&ranks).Error; err != nil {
				return err
			}
		}

		return nil
	})
	return translateError(err, "field")
}

// Duplicate creates dup with its fields and ranks and copies the writer grants of the source.
func (r *FormRepository) Duplicate(ctx context.Context, sourceID int64, dup domain.Form, grants []domain.Role) (domain.Form, error) {
	var created domain.Form
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForm(tx, sourceID); err != nil {
			return err
		}

		row := models.Form{
			Code:           dup.Code,
			UUID:           dup.UUID,
			Name:           dup.Name,
			Description:    dup.Description,
			IsActive:       true,
			DuplicatedFrom: dup.DuplicatedFrom,
		}
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			return translateError(err, "form")
		}

		for _, f := range dup.Fields {
			field := fieldToModel(f, row.ID)
			if err := tx.Omit(clause.Associations).Create(&field).Error; err != nil {
				return translateError(err, "field")
			}
			err := tx.Omit(clause.Associations).Create(&models.FieldRank{FieldID: field.ID, Rank: f.Rank}).Error
			if err != nil {
				return err
			}
		}

		if err := grantForm(tx, row.ID, grants, &sourceID); err != nil {
			return err
		}

		var err error
		created, err = getForm(ctx, tx, row.ID)
		return err
	})
	if err != nil {
		return domain.Form{}, translateError(err, "form")
	}
	return created, nil
}
