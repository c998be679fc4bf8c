package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/eform-core/internal/domain"
	"github.com/totegamma/eform-core/internal/infra/database/models"
)

const insertBatchSize = 500

type StoreRepository struct {
	db *gorm.DB
}

func NewStoreRepository(db *gorm.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

// InsertRows writes all rows of a submission or none of them.
func (r *StoreRepository) InsertRows(ctx context.Context, rows []domain.DataRow) error {
	if len(rows) == 0 {
		return nil
	}

	ms := make([]models.DataRow, 0, len(rows))
	for _, row := range rows {
		m := models.DataRow{
			SessionUUID: row.SessionUUID,
			UserID:      row.UserID,
			FieldID:     row.FieldID,
			Value:       row.Value,
			CDate:       row.CreatedAt,
		}
		if m.CDate.IsZero() {
			m.CDate = time.Now()
		}
		ms = append(ms, m)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).CreateInBatches(&ms, insertBatchSize).Error
	})
	return translateError(err, "data row")
}

func scopeRows(db *gorm.DB, formID int64, filter domain.RowFilter) *gorm.DB {
	db = db.Joins("JOIN fields f ON f.id = data_rows.field_id").
		Where("f.form_id = ?", formID)
	if filter.UserID != nil {
		db = db.Where("data_rows.user_id = ?", *filter.UserID)
	}
	if filter.SessionUUID != "" {
		db = db.Where("data_rows.session_uuid = ?", filter.SessionUUID)
	}
	return db
}

// Rows returns the rows of every field of the form, deleted fields included,
// in insertion order.
func (r *StoreRepository) Rows(ctx context.Context, formID int64, filter domain.RowFilter) ([]domain.DataRow, error) {
	var ms []models.DataRow
	err := scopeRows(r.db.WithContext(ctx).Model(&models.DataRow{}), formID, filter).
		Select("data_rows.*").
		Preload("User").
		Order("data_rows.c_date ASC, data_rows.id ASC").
		Find(&ms).Error
	if err != nil {
		return nil, translateError(err, "data row")
	}

	rows := make([]domain.DataRow, 0, len(ms))
	for _, m := range ms {
		rows = append(rows, domain.DataRow{
			ID:          m.ID,
			SessionUUID: m.SessionUUID,
			UserID:      m.UserID,
			FieldID:     m.FieldID,
			Value:       m.Value,
			CreatedAt:   m.CDate,
			User: domain.UserSummary{
				ID:        m.User.ID,
				Firstname: m.User.Firstname,
				Lastname:  m.User.Lastname,
				Email:     m.User.Email,
			},
		})
	}
	return rows, nil
}

// Sessions lists the submissions of the form, newest first. Every row of a
// session shares its timestamp, so the first row stands for the session.
func (r *StoreRepository) Sessions(ctx context.Context, formID int64, filter domain.RowFilter) ([]domain.Session, error) {
	db := r.db.WithContext(ctx)
	firsts := scopeRows(db.Model(&models.DataRow{}), formID, filter).
		Select("MIN(data_rows.id)").
		Group("data_rows.session_uuid")

	var ms []models.DataRow
	err := db.Select("session_uuid", "c_date").
		Where("id IN (?)", firsts).
		Order("c_date DESC, id DESC").
		Find(&ms).Error
	if err != nil {
		return nil, translateError(err, "session")
	}

	sessions := make([]domain.Session, 0, len(ms))
	for _, m := range ms {
		sessions = append(sessions, domain.Session{
			SessionUUID: m.SessionUUID,
			CreatedAt:   m.CDate,
		})
	}
	return sessions, nil
}
