package repository

import (
	"sort"

	"github.com/totegamma/eform-core/internal/domain"
	"github.com/totegamma/eform-core/internal/infra/database/models"
)

func fieldTypeFromModel(m models.FieldType) domain.FieldType {
	return domain.FieldType{
		ID:          m.ID,
		Code:        m.Code,
		Label:       m.Label,
		Value:       domain.FieldKind(m.Value),
		Description: m.Description,
	}
}

func fieldFromModel(m models.Field) domain.Field {
	rank := 0
	if m.Rank != nil {
		rank = m.Rank.Rank
	}
	return domain.Field{
		ID:           m.ID,
		Code:         m.Code,
		FormID:       m.FormID,
		FieldType:    fieldTypeFromModel(m.FieldType),
		Label:        m.Label,
		Slug:         m.Slug,
		UUID:         m.UUID,
		Description:  m.Description,
		Optional:     m.Optional,
		DefaultValue: m.DefaultValue,
		ExampleValue: m.ExampleValue,
		SelectValues: m.SelectValues,
		IsDeleted:    m.IsDeleted,
		Rank:         rank,
	}
}

func fieldToModel(f domain.Field, formID int64) models.Field {
	return models.Field{
		Code:         f.Code,
		FormID:       formID,
		FieldTypeID:  f.FieldType.ID,
		Label:        f.Label,
		Slug:         f.Slug,
		UUID:         f.UUID,
		Description:  f.Description,
		Optional:     f.Optional,
		DefaultValue: f.DefaultValue,
		ExampleValue: f.ExampleValue,
		SelectValues: f.SelectValues,
	}
}

// formFromModel converts a form; live fields come first by rank, unranked and
// deleted fields after them by id.
func formFromModel(m models.Form) domain.Form {
	fields := make([]domain.Field, 0, len(m.Fields))
	for _, f := range m.Fields {
		fields = append(fields, fieldFromModel(f))
	}
	sort.SliceStable(fields, func(i, j int) bool {
		a, b := fields[i], fields[j]
		if a.IsDeleted != b.IsDeleted {
			return !a.IsDeleted
		}
		if (a.Rank == 0) != (b.Rank == 0) {
			return a.Rank != 0
		}
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.ID < b.ID
	})

	return domain.Form{
		ID:             m.ID,
		Code:           m.Code,
		UUID:           m.UUID,
		Name:           m.Name,
		Description:    m.Description,
		IsActive:       m.IsActive,
		IsDeleted:      m.IsDeleted,
		DuplicatedFrom: m.DuplicatedFrom,
		Fields:         fields,
		CreatedAt:      m.CDate,
		UpdatedAt:      m.MDate,
	}
}
