package postgres

import (
	"context"
	"errors"
	"fmt"

	"luckyDraw/domain"

	"gorm.io/gorm"
)

type LotteryEventRepository struct {
	DB *gorm.DB
}

func NewLotteryEventRepository(db *gorm.DB) *LotteryEventRepository {
	return &LotteryEventRepository{
		DB: db,
	}
}

func (r *LotteryEventRepository) Create(ctx context.Context, event *domain.LotteryEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to create lottery event: %w", err)
	}

	return nil
}

func (r *LotteryEventRepository) FindByID(ctx context.Context, id uint64) (domain.LotteryEvent, error) {
	if err := ctx.Err(); err != nil {
		return domain.LotteryEvent{}, fmt.Errorf("context error: %w", err)
	}

	var event domain.LotteryEvent

	err := r.DB.WithContext(ctx).First(&event, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.LotteryEvent{}, domain.NewNotFoundError("lottery event", id)
		}
		return domain.LotteryEvent{}, fmt.Errorf("failed to find lottery event: %w", err)
	}

	return event, nil
}

// FindAll returns events newest first.
func (r *LotteryEventRepository) FindAll(ctx context.Context) ([]domain.LotteryEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var events []domain.LotteryEvent
	err := r.DB.WithContext(ctx).Order("id DESC").Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find lottery events: %w", err)
	}

	return events, nil
}

func (r *LotteryEventRepository) FindActiveIDs(ctx context.Context) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var ids []uint64
	err := r.DB.WithContext(ctx).Model(&domain.LotteryEvent{}).
		Where("is_active = ?", true).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find active lottery events: %w", err)
	}

	return ids, nil
}

func (r *LotteryEventRepository) Update(ctx context.Context, event *domain.LotteryEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	updateData := map[string]interface{}{
		"name":           event.Name,
		"is_active":      event.IsActive,
		"setting_amount": event.SettingAmount,
		"remain_amount":  event.RemainAmount,
	}

	result := r.DB.WithContext(ctx).Model(&domain.LotteryEvent{}).Where("id = ?", event.ID).Updates(updateData)
	if result.Error != nil {
		return fmt.Errorf("failed to update lottery event: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("lottery event", event.ID)
	}

	return nil
}

func (r *LotteryEventRepository) UpdateRemainAmount(ctx context.Context, id uint64, remain int) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).Model(&domain.LotteryEvent{}).Where("id = ?", id).Update("remain_amount", remain)
	if result.Error != nil {
		return fmt.Errorf("failed to update remain amount: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("lottery event", id)
	}

	return nil
}
