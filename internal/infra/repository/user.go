package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/totegamma/eform-core/internal/domain"
	"github.com/totegamma/eform-core/internal/infra/database/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetActor loads an active user with its profile.
func (r *UserRepository) GetActor(ctx context.Context, userID int64) (domain.Actor, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Profile").
		Where("id = ? AND is_active = ? AND is_deleted = ?", userID, true, false).
		Take(&user).Error
	if err != nil {
		return domain.Actor{}, translateError(err, "user")
	}
	return domain.Actor{
		ID: user.ID,
		Profile: domain.Profile{
			ID:    user.Profile.ID,
			Value: domain.Role(user.Profile.Value),
		},
	}, nil
}
