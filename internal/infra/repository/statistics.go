package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/totegamma/eform-core/internal/infra/database/models"
)

const submissionCountTTL = 30 // seconds

type StatisticsRepository struct {
	db *gorm.DB
	mc *memcache.Client
}

// NewStatisticsRepository accepts a nil memcache client, in which case every call hits the database.
func NewStatisticsRepository(db *gorm.DB, mc *memcache.Client) *StatisticsRepository {
	return &StatisticsRepository{db: db, mc: mc}
}

func submissionCountKey(formID int64) string {
	return fmt.Sprintf("eform:submissions:%d", formID)
}

func (r *StatisticsRepository) CountSessions(ctx context.Context, formID int64) (int64, error) {
	key := submissionCountKey(formID)

	if r.mc != nil {
		item, err := r.mc.Get(key)
		if err == nil {
			if n, err := strconv.ParseInt(string(item.Value), 10, 64); err == nil {
				return n, nil
			}
		}
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DataRow{}).
		Joins("JOIN fields f ON f.id = data_rows.field_id").
		Where("f.form_id = ?", formID).
		Distinct("data_rows.session_uuid").
		Count(&count).Error
	if err != nil {
		return 0, translateError(err, "statistics")
	}

	if r.mc != nil {
		err := r.mc.Set(&memcache.Item{
			Key:        key,
			Value:      []byte(strconv.FormatInt(count, 10)),
			Expiration: submissionCountTTL,
		})
		if err != nil {
			slog.WarnContext(ctx, "failed to cache submission count",
				slog.String("error", err.Error()),
				slog.String("module", "statistics"),
			)
		}
	}

	return count, nil
}

// Invalidate drops the cached count so the next read reflects new sessions.
func (r *StatisticsRepository) Invalidate(ctx context.Context, formID int64) error {
	if r.mc == nil {
		return nil
	}
	err := r.mc.Delete(submissionCountKey(formID))
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return errors.Wrap(err, "statistics")
	}
	return nil
}
