package repository

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"github.com/totegamma/eform-core/internal/domain"
	"github.com/totegamma/eform-core/internal/infra/database/models"
)

const fieldTypesCacheKey = "field-types"

// FieldTypeRepository serves the registry. Field types are seeded once and
// never change, so the list is kept in memory.
type FieldTypeRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewFieldTypeRepository(db *gorm.DB) *FieldTypeRepository {
	return &FieldTypeRepository{
		db:    db,
		cache: cache.New(30*time.Minute, 60*time.Minute),
	}
}

func (r *FieldTypeRepository) List(ctx context.Context) ([]domain.FieldType, error) {
	if cached, found := r.cache.Get(fieldTypesCacheKey); found {
		return cached.([]domain.FieldType), nil
	}

	var rows []models.FieldType
	err := r.db.WithContext(ctx).
		Where("status = ?", true).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err, "field type")
	}

	types := make([]domain.FieldType, 0, len(rows))
	for _, row := range rows {
		types = append(types, fieldTypeFromModel(row))
	}

	if len(types) > 0 {
		r.cache.SetDefault(fieldTypesCacheKey, types)
	}

	return types, nil
}

func (r *FieldTypeRepository) Get(ctx context.Context, id int64) (domain.FieldType, error) {
	types, err := r.List(ctx)
	if err != nil {
		return domain.FieldType{}, err
	}
	for _, t := range types {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.FieldType{}, domain.NotFoundError{Resource: "field type"}
}
