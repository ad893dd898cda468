package postgres

import (
	"context"
	"errors"
	"fmt"

	"luckyDraw/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type LotteryPrizeRepository struct {
	DB *gorm.DB
}

func NewLotteryPrizeRepository(db *gorm.DB) *LotteryPrizeRepository {
	return &LotteryPrizeRepository{
		DB: db,
	}
}

func (r *LotteryPrizeRepository) Create(ctx context.Context, prize *domain.LotteryPrize) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(prize).Error; err != nil {
		return fmt.Errorf("failed to create lottery prize: %w", err)
	}

	return nil
}

func (r *LotteryPrizeRepository) FindByID(ctx context.Context, id uint64) (domain.LotteryPrize, error) {
	if err := ctx.Err(); err != nil {
		return domain.LotteryPrize{}, fmt.Errorf("context error: %w", err)
	}

	var prize domain.LotteryPrize

	err := r.DB.WithContext(ctx).First(&prize, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.LotteryPrize{}, domain.NewNotFoundError("lottery prize", id)
		}
		return domain.LotteryPrize{}, fmt.Errorf("failed to find lottery prize: %w", err)
	}

	return prize, nil
}

// FindByEventID returns prizes in id order, which is also the rate map order.
func (r *LotteryPrizeRepository) FindByEventID(ctx context.Context, eventID uint64) ([]domain.LotteryPrize, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var prizes []domain.LotteryPrize
	err := r.DB.WithContext(ctx).Where("lottery_event_id = ?", eventID).Order("id").Find(&prizes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find lottery prizes: %w", err)
	}

	return prizes, nil
}

func (r *LotteryPrizeRepository) FindByEventIDAndName(ctx context.Context, eventID uint64, name string) (domain.LotteryPrize, error) {
	if err := ctx.Err(); err != nil {
		return domain.LotteryPrize{}, fmt.Errorf("context error: %w", err)
	}

	var prize domain.LotteryPrize
	err := r.DB.WithContext(ctx).Where("lottery_event_id = ? AND name = ?", eventID, name).First(&prize).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.LotteryPrize{}, domain.NewNotFoundError("lottery prize", fmt.Sprintf("%d/%s", eventID, name))
		}
		return domain.LotteryPrize{}, fmt.Errorf("failed to find lottery prize: %w", err)
	}

	return prize, nil
}

func (r *LotteryPrizeRepository) UpdateAmount(ctx context.Context, id uint64, amount int) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).Model(&domain.LotteryPrize{}).Where("id = ?", id).Update("amount", amount)
	if result.Error != nil {
		return fmt.Errorf("failed to update prize amount: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("lottery prize", id)
	}

	return nil
}

// UpdateRates writes every rate in one transaction.
func (r *LotteryPrizeRepository) UpdateRates(ctx context.Context, rates map[uint64]decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, rate := range rates {
			result := tx.Model(&domain.LotteryPrize{}).Where("id = ?", id).Update("rate", rate)
			if result.Error != nil {
				return fmt.Errorf("failed to update prize rate: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				return domain.NewNotFoundError("lottery prize", id)
			}
		}
		return nil
	})
}
