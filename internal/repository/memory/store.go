// Package memory runs the gorm repositories against an in-process SQLite
// database. It serves local runs (DB_DRIVER=memory) and the service tests;
// nothing survives a restart.
package memory

import (
	"context"
	"fmt"

	psqlRepo "luckyDraw/internal/repository/postgres"
	"luckyDraw/pkg/database"

	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func NewStore() (*Store, error) {
	db, err := database.InitSQLite(database.InMemoryDSN)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Events() *psqlRepo.LotteryEventRepository {
	return psqlRepo.NewLotteryEventRepository(s.db)
}

func (s *Store) Prizes() *psqlRepo.LotteryPrizeRepository {
	return psqlRepo.NewLotteryPrizeRepository(s.db)
}

func (s *Store) Quotas() *psqlRepo.UserQuotaRepository {
	return psqlRepo.NewUserQuotaRepository(s.db)
}

func (s *Store) WinRecords() *psqlRepo.WinRecordRepository {
	return psqlRepo.NewWinRecordRepository(s.db)
}

func (s *Store) Audits() *psqlRepo.SyncAuditRepository {
	return psqlRepo.NewSyncAuditRepository(s.db)
}

// Ping is used by health checks.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db: %w", err)
	}
	return sqlDB.Close()
}
