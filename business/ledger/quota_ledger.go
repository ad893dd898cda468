package ledger

import (
	"context"
	"errors"
	"fmt"

	"luckyDraw/domain"
	"luckyDraw/pkg/logger"
)

// CounterStore is the shared, multi-writer cache. Each method must be atomic
// on its single key; the ledger relies on nothing else.
type CounterStore interface {
	Get(ctx context.Context, key string) (int64, bool, error)
	Set(ctx context.Context, key string, value int64) error
	SetIfAbsent(ctx context.Context, key string, value int64) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	DecrementAndGet(ctx context.Context, key string) (int64, error)
	CompareAndSet(ctx context.Context, key string, expect, update int64) (bool, error)

	GetFlag(ctx context.Context, key string) (bool, bool, error)
	SetFlag(ctx context.Context, key string, value bool) error

	MapPut(ctx context.Context, key, field, value string) error
	MapPutAll(ctx context.Context, key string, entries []domain.CacheEntry) error
	MapPutIfExists(ctx context.Context, key, field, value string) (bool, error)
	MapGet(ctx context.Context, key, field string) (string, bool, error)
	MapEntries(ctx context.Context, key string) ([]domain.CacheEntry, error)
	MapDelete(ctx context.Context, key, field string) error
	MapClear(ctx context.Context, key string) error

	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
}

// ConditionalDecrementer is implemented by stores that can decrement only
// when the value is positive in one server side step.
type ConditionalDecrementer interface {
	DecrementIfPositive(ctx context.Context, key string) (int64, bool, error)
}

type EventRepository interface {
	FindByID(ctx context.Context, id uint64) (domain.LotteryEvent, error)
}

type UserQuotaRepository interface {
	FindByUserAndEvent(ctx context.Context, userID, eventID uint64) (domain.UserLotteryQuota, error)
}

// Loader reads the authoritative value of a counter from the durable store.
type Loader func(ctx context.Context) (int64, error)

type Ledger struct {
	store     CounterStore
	eventRepo EventRepository
	quotaRepo UserQuotaRepository
}

func NewLedger(store CounterStore, eventRepo EventRepository, quotaRepo UserQuotaRepository) *Ledger {
	return &Ledger{
		store:     store,
		eventRepo: eventRepo,
		quotaRepo: quotaRepo,
	}
}

func (l *Ledger) Store() CounterStore {
	return l.store
}

// GetOrInitCounter returns the cached value of key, seeding it from loader on
// first touch. Concurrent first touches race on a set-if-absent; losers read
// the winner's seed.
func (l *Ledger) GetOrInitCounter(ctx context.Context, key string, loader Loader) (int64, error) {
	val, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if ok {
		return val, nil
	}

	seed, err := loader(ctx)
	if err != nil {
		return 0, err
	}

	won, err := l.store.SetIfAbsent(ctx, key, seed)
	if err != nil {
		return 0, err
	}
	if won {
		logger.Debug("counter seeded from durable store", "key", key, "value", seed)
		return seed, nil
	}

	val, ok, err = l.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		// deleted between the seed attempt and the read, e.g. by ClearCache
		return 0, fmt.Errorf("counter %s vanished during initialization", key)
	}

	return val, nil
}

// DecrementIfPositive takes one unit from key. It returns ErrExhausted and
// leaves the counter unchanged when nothing is left.
func (l *Ledger) DecrementIfPositive(ctx context.Context, key string) (int64, error) {
	if cd, ok := l.store.(ConditionalDecrementer); ok {
		val, ok, err := cd.DecrementIfPositive(ctx, key)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, domain.ErrExhausted
		}
		return val, nil
	}

	val, err := l.store.DecrementAndGet(ctx, key)
	if err != nil {
		return 0, err
	}
	if val < 0 {
		if err := l.Rollback(ctx, key); err != nil {
			return 0, err
		}
		return 0, domain.ErrExhausted
	}

	return val, nil
}

// Rollback gives one unit back to key.
func (l *Ledger) Rollback(ctx context.Context, key string) error {
	if _, err := l.store.IncrementAndGet(ctx, key); err != nil {
		return fmt.Errorf("rollback %s: %w", key, err)
	}
	return nil
}

// ConsumeDrawQuota takes one draw from the event budget and then one from
// the user's allowance. On any failure every counter is left as found.
func (l *Ledger) ConsumeDrawQuota(ctx context.Context, eventID, userID uint64) error {
	eventKey := EventRemainKey(eventID)
	userKey := UserChanceKey(eventID, userID)

	if _, err := l.GetOrInitCounter(ctx, eventKey, l.eventBudgetLoader(eventID)); err != nil {
		return err
	}
	if _, err := l.GetOrInitCounter(ctx, userKey, l.userChanceLoader(eventID, userID)); err != nil {
		return err
	}

	if _, err := l.DecrementIfPositive(ctx, eventKey); err != nil {
		if errors.Is(err, domain.ErrExhausted) {
			return domain.NewDomainError(domain.ErrEventEnded)
		}
		return err
	}

	if _, err := l.DecrementIfPositive(ctx, userKey); err != nil {
		if rbErr := l.Rollback(ctx, eventKey); rbErr != nil {
			logger.Error("failed to roll back event budget",
				"event_id", eventID,
				"user_id", userID,
				"error", rbErr,
			)
			return errors.Join(err, rbErr)
		}
		if errors.Is(err, domain.ErrExhausted) {
			return domain.NewDomainError(domain.ErrUserExhausted)
		}
		return err
	}

	return nil
}

func (l *Ledger) eventBudgetLoader(eventID uint64) Loader {
	return func(ctx context.Context) (int64, error) {
		event, err := l.eventRepo.FindByID(ctx, eventID)
		if err != nil {
			return 0, err
		}
		if event.RemainAmount <= 0 {
			return 0, &domain.NotFoundError{
				Resource: "lottery event budget",
				Key:      fmt.Sprint(eventID),
				Reason:   domain.ErrEventEnded,
			}
		}
		return int64(event.RemainAmount), nil
	}
}

func (l *Ledger) userChanceLoader(eventID, userID uint64) Loader {
	return func(ctx context.Context) (int64, error) {
		quota, err := l.quotaRepo.FindByUserAndEvent(ctx, userID, eventID)
		if err != nil {
			return 0, err
		}
		if quota.DrawQuota <= 0 {
			return 0, &domain.NotFoundError{
				Resource: "user lottery quota",
				Key:      fmt.Sprintf("%d/%d", eventID, userID),
				Reason:   domain.ErrUserExhausted,
			}
		}
		return int64(quota.DrawQuota), nil
	}
}
