package postgres

import (
	"context"
	"errors"
	"fmt"

	"luckyDraw/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserQuotaRepository struct {
	DB *gorm.DB
}

func NewUserQuotaRepository(db *gorm.DB) *UserQuotaRepository {
	return &UserQuotaRepository{DB: db}
}

func (r *UserQuotaRepository) FindByUserAndEvent(ctx context.Context, userID, eventID uint64) (domain.UserLotteryQuota, error) {
	if err := ctx.Err(); err != nil {
		return domain.UserLotteryQuota{}, fmt.Errorf("context error: %w", err)
	}

	var quota domain.UserLotteryQuota
	err := r.DB.WithContext(ctx).Where("uid = ? AND lottery_event_id = ?", userID, eventID).First(&quota).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.UserLotteryQuota{}, domain.NewNotFoundError("user lottery quota", fmt.Sprintf("%d/%d", eventID, userID))
		}
		return domain.UserLotteryQuota{}, fmt.Errorf("failed to find user lottery quota: %w", err)
	}

	return quota, nil
}

// Save inserts or replaces the allowance of (uid, event).
func (r *UserQuotaRepository) Save(ctx context.Context, quota *domain.UserLotteryQuota) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "uid"}, {Name: "lottery_event_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"draw_quota", "updated_time"}),
		},
	).Create(quota).Error; err != nil {
		return fmt.Errorf("failed to upsert user lottery quota: %w", err)
	}

	return nil
}

func (r *UserQuotaRepository) UpdateDrawQuota(ctx context.Context, id uint64, drawQuota int) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).Model(&domain.UserLotteryQuota{}).Where("id = ?", id).Update("draw_quota", drawQuota)
	if result.Error != nil {
		return fmt.Errorf("failed to update draw quota: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("user lottery quota", id)
	}

	return nil
}
