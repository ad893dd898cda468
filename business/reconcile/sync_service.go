// Package reconcile levels the counter store against the durable store.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"luckyDraw/business/ledger"
	"luckyDraw/domain"
	"luckyDraw/pkg/logger"
	"luckyDraw/pkg/metrics"

	"gorm.io/datatypes"
)

const defaultSyncTimeout = 10 * time.Second

type EventRepository interface {
	FindByID(ctx context.Context, id uint64) (domain.LotteryEvent, error)
	FindActiveIDs(ctx context.Context) ([]uint64, error)
	UpdateRemainAmount(ctx context.Context, id uint64, remain int) error
}

type PrizeRepository interface {
	FindByEventID(ctx context.Context, eventID uint64) ([]domain.LotteryPrize, error)
	UpdateAmount(ctx context.Context, id uint64, amount int) error
}

type UserQuotaRepository interface {
	FindByUserAndEvent(ctx context.Context, userID, eventID uint64) (domain.UserLotteryQuota, error)
	UpdateDrawQuota(ctx context.Context, id uint64, drawQuota int) error
}

type SyncAuditRepository interface {
	Create(ctx context.Context, audit *domain.SyncAudit) error
}

type syncService struct {
	store     ledger.CounterStore
	eventRepo EventRepository
	prizeRepo PrizeRepository
	quotaRepo UserQuotaRepository
	auditRepo SyncAuditRepository
	timeout   time.Duration

	wg sync.WaitGroup
}

func NewSyncService(
	store ledger.CounterStore,
	eventRepo EventRepository,
	prizeRepo PrizeRepository,
	quotaRepo UserQuotaRepository,
	auditRepo SyncAuditRepository,
	timeout time.Duration,
) *syncService {
	if timeout <= 0 {
		timeout = defaultSyncTimeout
	}

	return &syncService{
		store:     store,
		eventRepo: eventRepo,
		prizeRepo: prizeRepo,
		quotaRepo: quotaRepo,
		auditRepo: auditRepo,
		timeout:   timeout,
	}
}

// SyncEvent writes the cached event budget and prize stock back to the
// database where they differ. Running it again without intervening draws
// changes nothing.
func (s *syncService) SyncEvent(ctx context.Context, eventID uint64) (domain.SyncResult, error) {
	return s.syncEvent(ctx, eventID, domain.SyncTriggerManual)
}

func (s *syncService) syncEvent(ctx context.Context, eventID uint64, trigger string) (domain.SyncResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	logger.Info("starting lottery data sync", "event_id", eventID, "trigger", trigger)

	result := domain.SyncResult{
		EventID:           eventID,
		PrizeStockChanges: []domain.PrizeStockChange{},
	}

	err := s.syncEventRemain(ctx, eventID, &result)
	if err == nil {
		err = s.syncPrizeStocks(ctx, eventID, &result)
	}
	if err != nil {
		result.Success = false
		result.ErrorMessage = err.Error()
		logger.Error("lottery data sync failed", "event_id", eventID, "trigger", trigger, "error", err)
		return result, fmt.Errorf("sync failed: %w", err)
	}

	result.Success = true

	if result.Changed() {
		s.writeAudit(ctx, trigger, result)
	}

	logger.Info("lottery data sync completed",
		"event_id", eventID,
		"event_remain_synced", result.EventRemainSynced,
		"prize_changes", len(result.PrizeStockChanges),
	)

	return result, nil
}

func (s *syncService) syncEventRemain(ctx context.Context, eventID uint64, result *domain.SyncResult) error {
	key := ledger.EventRemainKey(eventID)

	cached, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		logger.Warn("event remain key not found in cache", "key", key)
		return nil
	}

	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return err
	}

	if int64(event.RemainAmount) == cached {
		return nil
	}

	if err := s.eventRepo.UpdateRemainAmount(ctx, eventID, int(cached)); err != nil {
		return err
	}

	result.EventRemainSynced = true
	result.EventRemainBefore = event.RemainAmount
	result.EventRemainAfter = int(cached)
	metrics.SyncChanges.WithLabelValues("event").Inc()

	logger.Info("event remain amount synced", "event_id", eventID, "before", event.RemainAmount, "after", cached)
	return nil
}

func (s *syncService) syncPrizeStocks(ctx context.Context, eventID uint64, result *domain.SyncResult) error {
	prizes, err := s.prizeRepo.FindByEventID(ctx, eventID)
	if err != nil {
		return err
	}

	for _, p := range prizes {
		key := ledger.PrizeStockKey(eventID, p.Name)

		cached, ok, err := s.store.Get(ctx, key)
		if err != nil {
			return err
		}
		if !ok {
			logger.Warn("prize stock key not found in cache", "key", key)
			continue
		}
		if int64(p.Amount) == cached {
			continue
		}

		if err := s.prizeRepo.UpdateAmount(ctx, p.ID, int(cached)); err != nil {
			return err
		}

		result.PrizeStockChanges = append(result.PrizeStockChanges, domain.PrizeStockChange{
			PrizeID:     p.ID,
			PrizeName:   p.Name,
			StockBefore: p.Amount,
			StockAfter:  int(cached),
		})
		metrics.SyncChanges.WithLabelValues("prize").Inc()

		logger.Info("prize stock synced", "event_id", eventID, "prize", p.Name, "before", p.Amount, "after", cached)
	}

	return nil
}

// audit rows are best effort; the leveling itself already happened
func (s *syncService) writeAudit(ctx context.Context, trigger string, result domain.SyncResult) {
	changes, err := json.Marshal(result.PrizeStockChanges)
	if err != nil {
		logger.Error("failed to encode sync changes", "event_id", result.EventID, "error", err)
		return
	}

	before, after := result.EventRemainBefore, result.EventRemainAfter
	if !result.EventRemainSynced {
		before, after = -1, -1
	}

	audit := domain.SyncAudit{
		LotteryEventID:    result.EventID,
		Trigger:           trigger,
		EventRemainBefore: before,
		EventRemainAfter:  after,
		Changes:           datatypes.JSON(changes),
	}
	if err := s.auditRepo.Create(ctx, &audit); err != nil {
		logger.Error("failed to save sync audit", "event_id", result.EventID, "error", err)
	}
}

// SyncUserQuota writes one user's cached allowance back to the database.
func (s *syncService) SyncUserQuota(ctx context.Context, eventID, userID uint64) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	key := ledger.UserChanceKey(eventID, userID)

	cached, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		logger.Warn("user chance key not found in cache", "key", key)
		return nil
	}

	quota, err := s.quotaRepo.FindByUserAndEvent(ctx, userID, eventID)
	if err != nil {
		return err
	}
	if int64(quota.DrawQuota) == cached {
		return nil
	}

	if err := s.quotaRepo.UpdateDrawQuota(ctx, quota.ID, int(cached)); err != nil {
		return err
	}
	metrics.SyncChanges.WithLabelValues("user").Inc()

	logger.Info("user quota synced", "event_id", eventID, "user_id", userID, "before", quota.DrawQuota, "after", cached)
	return nil
}

// DispatchUserQuotaSync runs SyncUserQuota in the background. Errors are
// logged only.
func (s *syncService) DispatchUserQuotaSync(eventID, userID uint64) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if err := s.SyncUserQuota(context.Background(), eventID, userID); err != nil {
			logger.Error("background user quota sync failed", "event_id", eventID, "user_id", userID, "error", err)
		}
	}()
}

// EmergencySync is the repair path after a failed draw. It never fails: its
// own errors are logged and dropped.
func (s *syncService) EmergencySync(ctx context.Context, eventID, userID uint64, cause error) {
	logger.Error("emergency sync triggered", "event_id", eventID, "user_id", userID, "cause", cause)

	if _, err := s.syncEvent(ctx, eventID, domain.SyncTriggerEmergency); err != nil {
		metrics.EmergencySyncTotal.WithLabelValues("failed").Inc()
		logger.Error("emergency sync failed", "event_id", eventID, "error", err)
		return
	}

	if userID != 0 {
		if err := s.SyncUserQuota(ctx, eventID, userID); err != nil {
			metrics.EmergencySyncTotal.WithLabelValues("failed").Inc()
			logger.Error("emergency user quota sync failed", "event_id", eventID, "user_id", userID, "error", err)
			return
		}
	}

	metrics.EmergencySyncTotal.WithLabelValues("ok").Inc()
	logger.Info("emergency sync completed", "event_id", eventID, "user_id", userID)
}

// Run levels eventIDs (or every active event when empty) each interval
// until ctx is done.
func (s *syncService) Run(ctx context.Context, interval time.Duration, eventIDs []uint64) {
	if interval <= 0 {
		logger.Info("periodic lottery sync disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.syncAll(ctx, eventIDs)
		}
	}
}

func (s *syncService) syncAll(ctx context.Context, eventIDs []uint64) {
	ids := eventIDs
	if len(ids) == 0 {
		active, err := s.eventRepo.FindActiveIDs(ctx)
		if err != nil {
			logger.Error("failed to list active lottery events", "error", err)
			return
		}
		ids = active
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		// errors are logged inside
		_, _ = s.syncEvent(ctx, id, domain.SyncTriggerScheduled)
	}
}

// Wait blocks until dispatched background syncs finish.
func (s *syncService) Wait() {
	s.wg.Wait()
}
