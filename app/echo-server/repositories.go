package main

import (
	"context"

	"luckyDraw/domain"
	"luckyDraw/internal/repository/memory"
	psqlRepo "luckyDraw/internal/repository/postgres"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type eventRepository interface {
	Create(ctx context.Context, event *domain.LotteryEvent) error
	FindByID(ctx context.Context, id uint64) (domain.LotteryEvent, error)
	FindAll(ctx context.Context) ([]domain.LotteryEvent, error)
	FindActiveIDs(ctx context.Context) ([]uint64, error)
	Update(ctx context.Context, event *domain.LotteryEvent) error
	UpdateRemainAmount(ctx context.Context, id uint64, remain int) error
}

type prizeRepository interface {
	Create(ctx context.Context, prize *domain.LotteryPrize) error
	FindByID(ctx context.Context, id uint64) (domain.LotteryPrize, error)
	FindByEventID(ctx context.Context, eventID uint64) ([]domain.LotteryPrize, error)
	FindByEventIDAndName(ctx context.Context, eventID uint64, name string) (domain.LotteryPrize, error)
	UpdateAmount(ctx context.Context, id uint64, amount int) error
	UpdateRates(ctx context.Context, rates map[uint64]decimal.Decimal) error
}

type quotaRepository interface {
	FindByUserAndEvent(ctx context.Context, userID, eventID uint64) (domain.UserLotteryQuota, error)
	Save(ctx context.Context, quota *domain.UserLotteryQuota) error
	UpdateDrawQuota(ctx context.Context, id uint64, drawQuota int) error
}

type winRecordRepository interface {
	Create(ctx context.Context, record *domain.WinRecord) error
	FindByUserID(ctx context.Context, userID uint64) ([]domain.WinRecord, error)
}

type syncAuditRepository interface {
	Create(ctx context.Context, audit *domain.SyncAudit) error
	FindByEventID(ctx context.Context, eventID uint64, limit int) ([]domain.SyncAudit, error)
}

type repositories struct {
	events eventRepository
	prizes prizeRepository
	quotas quotaRepository
	wins   winRecordRepository
	audits syncAuditRepository
}

func postgresRepositories(db *gorm.DB) repositories {
	return repositories{
		events: psqlRepo.NewLotteryEventRepository(db),
		prizes: psqlRepo.NewLotteryPrizeRepository(db),
		quotas: psqlRepo.NewUserQuotaRepository(db),
		wins:   psqlRepo.NewWinRecordRepository(db),
		audits: psqlRepo.NewSyncAuditRepository(db),
	}
}

func memoryRepositories(store *memory.Store) repositories {
	return repositories{
		events: store.Events(),
		prizes: store.Prizes(),
		quotas: store.Quotas(),
		wins:   store.WinRecords(),
		audits: store.Audits(),
	}
}

// seedDemo gives a memory backed server one active event to draw from.
func seedDemo(ctx context.Context, repos repositories) error {
	event := domain.LotteryEvent{Name: "Demo", IsActive: true, SettingAmount: 1000, RemainAmount: 1000}
	if err := repos.events.Create(ctx, &event); err != nil {
		return err
	}

	prizes := []domain.LotteryPrize{
		{LotteryEventID: event.ID, Name: "Gold", Rate: decimal.RequireFromString("0.05"), Amount: 10},
		{LotteryEventID: event.ID, Name: "Silver", Rate: decimal.RequireFromString("0.15"), Amount: 50},
		{LotteryEventID: event.ID, Name: "Bronze", Rate: decimal.RequireFromString("0.30"), Amount: 200},
	}
	for i := range prizes {
		if err := repos.prizes.Create(ctx, &prizes[i]); err != nil {
			return err
		}
	}

	for uid := uint64(1); uid <= 100; uid++ {
		quota := domain.UserLotteryQuota{UID: uid, LotteryEventID: event.ID, DrawQuota: 10}
		if err := repos.quotas.Save(ctx, &quota); err != nil {
			return err
		}
	}

	return nil
}
