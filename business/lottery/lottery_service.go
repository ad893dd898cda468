package lottery

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"luckyDraw/business/catalog"
	"luckyDraw/business/ledger"
	"luckyDraw/domain"
	"luckyDraw/pkg/config"
	"luckyDraw/pkg/logger"
	"luckyDraw/pkg/metrics"

	"github.com/google/uuid"
)

type EventRepository interface {
	FindByID(ctx context.Context, id uint64) (domain.LotteryEvent, error)
}

type PrizeRepository interface {
	FindByEventID(ctx context.Context, eventID uint64) ([]domain.LotteryPrize, error)
}

// Recorder persists wins off the draw path. Submit must not block.
type Recorder interface {
	Submit(task domain.WinTask) bool
}

// Reconciler repairs cache/database drift after a failed draw. It never
// returns an error.
type Reconciler interface {
	EmergencySync(ctx context.Context, eventID, userID uint64, cause error)
}

type Locker interface {
	TryLock(ctx context.Context, key string, wait, lease time.Duration) (unlock func(context.Context) error, ok bool, err error)
}

type Options struct {
	Strategy  string
	LockWait  time.Duration
	LockLease time.Duration
}

type lotteryService struct {
	ledger     *ledger.Ledger
	catalog    *catalog.Catalog
	eventRepo  EventRepository
	prizeRepo  PrizeRepository
	recorder   Recorder
	reconciler Reconciler
	locker     Locker
	opts       Options

	random func() float64
}

func NewLotteryService(
	l *ledger.Ledger,
	c *catalog.Catalog,
	eventRepo EventRepository,
	prizeRepo PrizeRepository,
	recorder Recorder,
	reconciler Reconciler,
	locker Locker,
	opts Options,
) *lotteryService {
	if opts.Strategy == "" {
		opts.Strategy = config.StrategyLockFree
	}

	return &lotteryService{
		ledger:     l,
		catalog:    c,
		eventRepo:  eventRepo,
		prizeRepo:  prizeRepo,
		recorder:   recorder,
		reconciler: reconciler,
		locker:     locker,
		opts:       opts,
		random:     rand.Float64,
	}
}

// InitPrizeStock overwrites the event budget, rate map and prize stock in the
// cache with the durable values.
func (s *lotteryService) InitPrizeStock(ctx context.Context, eventID uint64) error {
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		logger.Error("failed to find lottery event", "event_id", eventID, "error", err)
		return err
	}

	if err := s.ledger.Store().Set(ctx, ledger.EventRemainKey(eventID), int64(event.RemainAmount)); err != nil {
		return err
	}

	prizes, err := s.prizeRepo.FindByEventID(ctx, eventID)
	if err != nil {
		return err
	}

	if err := s.catalog.Seed(ctx, eventID, prizes); err != nil {
		return err
	}

	logger.Info("initialized prize stock", "event_id", eventID, "remain_amount", event.RemainAmount, "prizes", len(prizes))
	return nil
}

// Draw runs one draw and returns the won prize name or Miss. Any failure
// triggers an emergency sync before it is returned.
func (s *lotteryService) Draw(ctx context.Context, eventID, userID uint64, keepResult bool) (string, error) {
	start := time.Now()
	defer func() {
		metrics.DrawLatency.Observe(time.Since(start).Seconds())
	}()

	drawID := uuid.NewString()

	var (
		result string
		err    error
	)
	if s.opts.Strategy == config.StrategyMutex {
		result, err = s.drawLocked(ctx, drawID, eventID, userID, keepResult)
	} else {
		result, err = s.draw(ctx, drawID, eventID, userID, keepResult)
	}

	if err != nil {
		metrics.DrawTotal.WithLabelValues(metrics.ResultFailed).Inc()
		return "", s.fail(ctx, drawID, eventID, userID, err)
	}

	if result == Miss {
		metrics.DrawTotal.WithLabelValues(metrics.ResultMiss).Inc()
	} else {
		metrics.DrawTotal.WithLabelValues(metrics.ResultWon).Inc()
	}

	logger.Info("lottery draw completed",
		"draw_id", drawID,
		"event_id", eventID,
		"user_id", userID,
		"result", result,
	)

	return result, nil
}

func (s *lotteryService) draw(ctx context.Context, drawID string, eventID, userID uint64, keepResult bool) (string, error) {
	if err := s.ValidateEventActive(ctx, eventID); err != nil {
		return "", err
	}

	if err := s.ledger.ConsumeDrawQuota(ctx, eventID, userID); err != nil {
		return "", err
	}

	available, err := s.catalog.AvailableRates(ctx, eventID)
	if err != nil {
		return "", err
	}

	prize := Select(available, s.random())
	if prize == Miss {
		return Miss, nil
	}

	if _, err := s.catalog.ConsumeStock(ctx, eventID, prize); err != nil {
		if errors.Is(err, domain.ErrExhausted) {
			// the draw stays consumed
			metrics.StockRaceLost.Inc()
			logger.Warn("prize stock insufficient", "draw_id", drawID, "event_id", eventID, "prize", prize)
			return Miss, nil
		}
		return "", err
	}

	if keepResult {
		s.recorder.Submit(domain.WinTask{
			DrawID:    drawID,
			EventID:   eventID,
			UserID:    userID,
			PrizeName: prize,
		})
	}

	return prize, nil
}

// drawLocked serializes draws of one event behind the shared lease lock.
func (s *lotteryService) drawLocked(ctx context.Context, drawID string, eventID, userID uint64, keepResult bool) (string, error) {
	unlock, ok, err := s.locker.TryLock(ctx, ledger.EventLockKey(eventID), s.opts.LockWait, s.opts.LockLease)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.NewDomainError(domain.ErrSystemBusy)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			logger.Error("failed to release draw lock", "event_id", eventID, "error", err)
		}
	}()

	return s.draw(ctx, drawID, eventID, userID, keepResult)
}

func (s *lotteryService) fail(ctx context.Context, drawID string, eventID, userID uint64, err error) error {
	expected := domain.IsDomainError(err) || domain.IsNotFound(err)

	if expected {
		logger.Warn("lottery draw rejected",
			"draw_id", drawID,
			"event_id", eventID,
			"user_id", userID,
			"error", err,
		)
	} else {
		logger.Error("unexpected lottery error",
			"draw_id", drawID,
			"event_id", eventID,
			"user_id", userID,
			"error", err,
		)
	}

	// the caller may already be gone; the repair must still run
	s.reconciler.EmergencySync(context.WithoutCancel(ctx), eventID, userID, err)

	if expected {
		return err
	}
	return domain.NewSystemError(err)
}

func (s *lotteryService) ValidateEventActive(ctx context.Context, eventID uint64) error {
	active, err := s.IsEventActive(ctx, eventID)
	if err != nil {
		return err
	}
	if !active {
		return domain.NewDomainError(domain.ErrEventNotActive)
	}
	return nil
}

// IsEventActive reads the cached flag, caching the durable value on a miss.
func (s *lotteryService) IsEventActive(ctx context.Context, eventID uint64) (bool, error) {
	store := s.ledger.Store()

	active, ok, err := store.GetFlag(ctx, ledger.EventActiveKey(eventID))
	if err != nil {
		return false, err
	}
	if ok {
		return active, nil
	}

	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return false, err
	}

	if err := store.SetFlag(ctx, ledger.EventActiveKey(eventID), event.IsActive); err != nil {
		return false, err
	}

	return event.IsActive, nil
}
