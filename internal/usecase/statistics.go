package usecase

import (
	"context"
)

type StatisticsUsecase struct {
	forms FormRepository
	repo  StatisticsRepository
}

func NewStatisticsUsecase(forms FormRepository, repo StatisticsRepository) *StatisticsUsecase {
	return &StatisticsUsecase{
		forms: forms,
		repo:  repo,
	}
}

// CountSubmissions returns the number of distinct sessions stored for a form.
func (uc *StatisticsUsecase) CountSubmissions(ctx context.Context, formUUID string) (int64, error) {
	form, err := uc.forms.GetByUUID(ctx, formUUID, false)
	if err != nil {
		return 0, err
	}
	return uc.repo.CountSessions(ctx, form.ID)
}
