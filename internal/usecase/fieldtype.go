package usecase

import (
	"context"

	"github.com/totegamma/eform-core/internal/domain"
)

type FieldTypeUsecase struct {
	repo FieldTypeRepository
}

func NewFieldTypeUsecase(repo FieldTypeRepository) *FieldTypeUsecase {
	return &FieldTypeUsecase{repo: repo}
}

func (uc *FieldTypeUsecase) List(ctx context.Context) ([]domain.FieldType, error) {
	return uc.repo.List(ctx)
}
