// Package catalog mirrors an event's prize rates and stock in the counter
// store and hydrates them from the durable store on demand.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"luckyDraw/business/ledger"
	"luckyDraw/domain"
	"luckyDraw/pkg/logger"
)

type PrizeRepository interface {
	FindByEventID(ctx context.Context, eventID uint64) ([]domain.LotteryPrize, error)
}

type Catalog struct {
	ledger    *ledger.Ledger
	store     ledger.CounterStore
	prizeRepo PrizeRepository
}

func NewCatalog(l *ledger.Ledger, prizeRepo PrizeRepository) *Catalog {
	return &Catalog{
		ledger:    l,
		store:     l.Store(),
		prizeRepo: prizeRepo,
	}
}

// Rates returns the event's rate map in insertion order. An empty map is
// hydrated from the durable store first.
func (c *Catalog) Rates(ctx context.Context, eventID uint64) ([]domain.PrizeRate, error) {
	entries, err := c.store.MapEntries(ctx, ledger.PrizeRateKey(eventID))
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		if err := c.hydrate(ctx, eventID); err != nil {
			return nil, err
		}

		entries, err = c.store.MapEntries(ctx, ledger.PrizeRateKey(eventID))
		if err != nil {
			return nil, err
		}
	}

	return parseEntries(entries)
}

// AvailableRates is Rates restricted to prizes whose stock counter exists
// and is positive. Order is preserved.
func (c *Catalog) AvailableRates(ctx context.Context, eventID uint64) ([]domain.PrizeRate, error) {
	rates, err := c.Rates(ctx, eventID)
	if err != nil {
		return nil, err
	}

	available := make([]domain.PrizeRate, 0, len(rates))
	for _, pr := range rates {
		stock, ok, err := c.store.Get(ctx, ledger.PrizeStockKey(eventID, pr.Name))
		if err != nil {
			return nil, err
		}
		if ok && stock > 0 {
			available = append(available, pr)
		}
	}

	return available, nil
}

// ConsumeStock takes one unit of the prize's stock. It returns
// domain.ErrExhausted when a competing draw took the last one.
func (c *Catalog) ConsumeStock(ctx context.Context, eventID uint64, prizeName string) (int64, error) {
	return c.ledger.DecrementIfPositive(ctx, ledger.PrizeStockKey(eventID, prizeName))
}

// StockOf reads the cached stock of a prize. ok is false when no counter
// exists.
func (c *Catalog) StockOf(ctx context.Context, eventID uint64, prizeName string) (stock int64, ok bool, err error) {
	return c.store.Get(ctx, ledger.PrizeStockKey(eventID, prizeName))
}

func (c *Catalog) RateOf(ctx context.Context, eventID uint64, prizeName string) (domain.Rate, bool, error) {
	raw, ok, err := c.store.MapGet(ctx, ledger.PrizeRateKey(eventID), prizeName)
	if err != nil || !ok {
		return 0, ok, err
	}

	rate, err := domain.ParseRateString(raw)
	if err != nil {
		return 0, false, err
	}
	return rate, true, nil
}

// PutRate updates one cached rate. A map that was never hydrated is left
// alone; hydration will read the durable value.
func (c *Catalog) PutRate(ctx context.Context, eventID uint64, prizeName string, rate domain.Rate) error {
	_, err := c.store.MapPutIfExists(ctx, ledger.PrizeRateKey(eventID), prizeName, rate.String())
	return err
}

// Seed rebuilds the rate map from prizes and overwrites their stock
// counters. Prizes without stock are left out of both and lose any counter
// they had, so they can never be selected.
func (c *Catalog) Seed(ctx context.Context, eventID uint64, prizes []domain.LotteryPrize) error {
	if err := c.store.MapClear(ctx, ledger.PrizeRateKey(eventID)); err != nil {
		return err
	}

	entries := make([]domain.CacheEntry, 0, len(prizes))
	for _, p := range prizes {
		if p.Amount <= 0 {
			if err := c.store.Delete(ctx, ledger.PrizeStockKey(eventID, p.Name)); err != nil {
				return err
			}
			continue
		}

		entry, err := cacheEntry(p)
		if err != nil {
			return err
		}

		if err := c.store.Set(ctx, ledger.PrizeStockKey(eventID, p.Name), int64(p.Amount)); err != nil {
			return err
		}
		entries = append(entries, entry)
	}

	return c.store.MapPutAll(ctx, ledger.PrizeRateKey(eventID), entries)
}

// Refresh clears the rate map and every stock counter, then re-seeds all of
// them from the durable store, including prizes with zero stock.
func (c *Catalog) Refresh(ctx context.Context, eventID uint64) error {
	prizes, err := c.prizeRepo.FindByEventID(ctx, eventID)
	if err != nil {
		return err
	}

	if err := c.Clear(ctx, eventID, prizes); err != nil {
		return err
	}

	entries := make([]domain.CacheEntry, 0, len(prizes))
	for _, p := range prizes {
		entry, err := cacheEntry(p)
		if err != nil {
			return err
		}

		if err := c.store.Set(ctx, ledger.PrizeStockKey(eventID, p.Name), int64(p.Amount)); err != nil {
			return err
		}
		entries = append(entries, entry)
	}

	if err := c.store.MapPutAll(ctx, ledger.PrizeRateKey(eventID), entries); err != nil {
		return err
	}

	logger.Info("prize catalog refreshed", "event_id", eventID, "prizes", len(prizes))
	return nil
}

// Clear drops the rate map and the stock counters of the given prizes.
func (c *Catalog) Clear(ctx context.Context, eventID uint64, prizes []domain.LotteryPrize) error {
	keys := make([]string, 0, len(prizes))
	for _, p := range prizes {
		keys = append(keys, ledger.PrizeStockKey(eventID, p.Name))
	}

	if err := c.store.MapClear(ctx, ledger.PrizeRateKey(eventID)); err != nil {
		return err
	}
	return c.store.Delete(ctx, keys...)
}

// hydrate fills an empty rate map. Stock counters that already exist are
// kept, so repeated or concurrent hydration never resets in-flight stock.
func (c *Catalog) hydrate(ctx context.Context, eventID uint64) error {
	prizes, err := c.prizeRepo.FindByEventID(ctx, eventID)
	if err != nil {
		return err
	}
	if len(prizes) == 0 {
		return &domain.NotFoundError{
			Resource: "lottery prizes",
			Key:      fmt.Sprint(eventID),
			Reason:   domain.ErrNoPrizes,
		}
	}

	entries := make([]domain.CacheEntry, 0, len(prizes))
	for _, p := range prizes {
		entry, err := cacheEntry(p)
		if err != nil {
			return err
		}

		if _, err := c.store.SetIfAbsent(ctx, ledger.PrizeStockKey(eventID, p.Name), int64(p.Amount)); err != nil {
			return err
		}
		entries = append(entries, entry)
	}

	if err := c.store.MapPutAll(ctx, ledger.PrizeRateKey(eventID), entries); err != nil {
		return err
	}

	logger.Info("prize catalog hydrated from database", "event_id", eventID, "prizes", len(prizes))
	return nil
}

// cacheEntry is the rate map entry of p. Every prize entering the map passes
// through here.
func cacheEntry(p domain.LotteryPrize) (domain.CacheEntry, error) {
	if err := domain.ValidatePrizeName(p.Name); err != nil {
		return domain.CacheEntry{}, err
	}

	rate, err := domain.ParseRate(p.Rate)
	if err != nil {
		return domain.CacheEntry{}, fmt.Errorf("prize %s: %w", p.Name, err)
	}

	return domain.CacheEntry{Field: p.Name, Value: rate.String()}, nil
}

func parseEntries(entries []domain.CacheEntry) ([]domain.PrizeRate, error) {
	rates := make([]domain.PrizeRate, 0, len(entries))
	for _, e := range entries {
		rate, err := domain.ParseRateString(e.Value)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("corrupt rate for prize %s", e.Field), err)
		}
		rates = append(rates, domain.PrizeRate{Name: e.Field, Rate: rate})
	}
	return rates, nil
}
