package postgres

import (
	"context"
	"fmt"

	"luckyDraw/domain"

	"gorm.io/gorm"
)

type WinRecordRepository struct {
	DB *gorm.DB
}

func NewWinRecordRepository(db *gorm.DB) *WinRecordRepository {
	return &WinRecordRepository{DB: db}
}

func (r *WinRecordRepository) Create(ctx context.Context, record *domain.WinRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to save win record: %w", err)
	}

	return nil
}

func (r *WinRecordRepository) FindByUserID(ctx context.Context, userID uint64) ([]domain.WinRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var records []domain.WinRecord
	err := r.DB.WithContext(ctx).Where("uid = ?", userID).Order("id").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find win records: %w", err)
	}

	return records, nil
}
