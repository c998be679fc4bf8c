package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/totegamma/eform-core/internal/domain"
	"github.com/totegamma/eform-core/internal/infra/database/models"
)

type PermissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

func (r *PermissionRepository) GetFormPermission(ctx context.Context, formID, profileID int64) (domain.FormPermission, error) {
	var perm models.FormPermission
	err := r.db.WithContext(ctx).
		Where("form_id = ? AND profile_id = ?", formID, profileID).
		Take(&perm).Error
	if err != nil {
		return domain.FormPermission{}, translateError(err, "form permission")
	}
	return domain.FormPermission{
		FormID:    perm.FormID,
		ProfileID: perm.ProfileID,
		IsActive:  perm.IsActive,
	}, nil
}

// HasTeamScope reports whether the user belongs to an active team assigned
// to an active project that uses the form.
func (r *PermissionRepository) HasTeamScope(ctx context.Context, formID, userID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("user_teams ut").
		Joins("JOIN teams t ON t.id = ut.team_id").
		Joins("JOIN project_teams pt ON pt.team_id = ut.team_id").
		Joins("JOIN projects p ON p.id = pt.project_id").
		Where("ut.user_id = ? AND p.form_id = ?", userID, formID).
		Where("t.is_active = ? AND t.is_deleted = ?", true, false).
		Where("pt.is_active = ?", true).
		Where("p.is_active = ? AND p.is_deleted = ?", true, false).
		Count(&count).Error
	if err != nil {
		return false, translateError(err, "team scope")
	}
	return count > 0, nil
}
