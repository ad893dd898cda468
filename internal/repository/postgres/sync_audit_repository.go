package postgres

import (
	"context"
	"fmt"

	"luckyDraw/domain"

	"gorm.io/gorm"
)

type SyncAuditRepository struct {
	DB *gorm.DB
}

func NewSyncAuditRepository(db *gorm.DB) *SyncAuditRepository {
	return &SyncAuditRepository{DB: db}
}

func (r *SyncAuditRepository) Create(ctx context.Context, audit *domain.SyncAudit) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(audit).Error; err != nil {
		return fmt.Errorf("failed to save sync audit: %w", err)
	}

	return nil
}

func (r *SyncAuditRepository) FindByEventID(ctx context.Context, eventID uint64, limit int) ([]domain.SyncAudit, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	if limit <= 0 {
		limit = 50
	}

	var audits []domain.SyncAudit
	err := r.DB.WithContext(ctx).
		Where("lottery_event_id = ?", eventID).
		Order("id DESC").
		Limit(limit).
		Find(&audits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find sync audits: %w", err)
	}

	return audits, nil
}
