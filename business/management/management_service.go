// Package management holds the administrative operations on events, prize
// rates and their cache mirror.
package management

import (
	"context"
	"fmt"

	"luckyDraw/business/catalog"
	"luckyDraw/business/ledger"
	"luckyDraw/domain"
	"luckyDraw/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type EventRepository interface {
	FindByID(ctx context.Context, id uint64) (domain.LotteryEvent, error)
	FindAll(ctx context.Context) ([]domain.LotteryEvent, error)
	Update(ctx context.Context, event *domain.LotteryEvent) error
}

type PrizeRepository interface {
	FindByID(ctx context.Context, id uint64) (domain.LotteryPrize, error)
	FindByEventID(ctx context.Context, eventID uint64) ([]domain.LotteryPrize, error)
	UpdateRates(ctx context.Context, rates map[uint64]decimal.Decimal) error
}

type SyncAuditRepository interface {
	FindByEventID(ctx context.Context, eventID uint64, limit int) ([]domain.SyncAudit, error)
}

type EventUpdate struct {
	EventID      uint64       `json:"event_id" validate:"required"`
	IsActive     *bool        `json:"is_active"`
	RemainAmount *int         `json:"remain_amount" validate:"omitempty,min=0"`
	Rates        []RateUpdate `json:"rate_update_list" validate:"dive"`
}

type RateUpdate struct {
	PrizeID uint64           `json:"id" validate:"required"`
	Rate    *decimal.Decimal `json:"rate" validate:"required"`
}

// ratePlan is a validated rate change, ready to be written.
type ratePlan struct {
	eventID uint64
	rates   map[uint64]domain.Rate
	names   map[uint64]string
}

type managementService struct {
	store     ledger.CounterStore
	catalog   *catalog.Catalog
	eventRepo EventRepository
	prizeRepo PrizeRepository
	auditRepo SyncAuditRepository
	validate  *validator.Validate
}

func NewManagementService(
	store ledger.CounterStore,
	c *catalog.Catalog,
	eventRepo EventRepository,
	prizeRepo PrizeRepository,
	auditRepo SyncAuditRepository,
	validate *validator.Validate,
) *managementService {
	return &managementService{
		store:     store,
		catalog:   c,
		eventRepo: eventRepo,
		prizeRepo: prizeRepo,
		auditRepo: auditRepo,
		validate:  validate,
	}
}

// UpdateLotteryEvent applies the active flag, remaining budget and rates of
// req. Every part is validated before anything is written.
func (s *managementService) UpdateLotteryEvent(ctx context.Context, req EventUpdate) error {
	if err := requireRates(req.Rates); err != nil {
		return err
	}
	if err := s.validate.Struct(&req); err != nil {
		logger.Error("invalid lottery event update", "error", err)
		return domain.NewDomainError(err)
	}

	event, err := s.eventRepo.FindByID(ctx, req.EventID)
	if err != nil {
		return err
	}

	var plan *ratePlan
	if len(req.Rates) > 0 {
		if plan, err = s.planRates(ctx, req.EventID, req.Rates); err != nil {
			return err
		}
	}

	if req.IsActive != nil {
		event.IsActive = *req.IsActive
	}
	if req.RemainAmount != nil {
		event.RemainAmount = *req.RemainAmount
	}

	if err := s.eventRepo.Update(ctx, &event); err != nil {
		return err
	}

	if req.IsActive != nil {
		if err := s.UpdateEventActiveStatus(ctx, event.ID, *req.IsActive); err != nil {
			return err
		}
	}
	if req.RemainAmount != nil {
		if err := s.UpdateRemainAmount(ctx, event.ID, *req.RemainAmount); err != nil {
			return err
		}
	}

	if plan != nil {
		if err := s.applyRates(ctx, plan); err != nil {
			return err
		}
	}

	logger.Info("lottery event updated", "event_id", event.ID)
	return nil
}

func (s *managementService) UpdatePrizeRates(ctx context.Context, eventID uint64, updates []RateUpdate) error {
	if err := requireRates(updates); err != nil {
		return err
	}
	for i := range updates {
		if err := s.validate.Struct(&updates[i]); err != nil {
			return domain.NewDomainError(err)
		}
	}

	plan, err := s.planRates(ctx, eventID, updates)
	if err != nil {
		return err
	}

	return s.applyRates(ctx, plan)
}

func (s *managementService) UpdateSinglePrizeRate(ctx context.Context, eventID, prizeID uint64, rate *decimal.Decimal) error {
	return s.UpdatePrizeRates(ctx, eventID, []RateUpdate{{PrizeID: prizeID, Rate: rate}})
}

// requireRates rejects an update that leaves the rate out; a missing rate
// must not decode into zero.
func requireRates(updates []RateUpdate) error {
	for _, u := range updates {
		if u.Rate == nil {
			return domain.NewDomainError(domain.ErrRateRequired)
		}
	}
	return nil
}

// planRates checks scale, range, ownership and the projected total of the
// event's rates with updates applied.
func (s *managementService) planRates(ctx context.Context, eventID uint64, updates []RateUpdate) (*ratePlan, error) {
	prizes, err := s.prizeRepo.FindByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	projected := make(map[uint64]domain.Rate, len(prizes))
	names := make(map[uint64]string, len(prizes))
	for _, p := range prizes {
		rate, err := domain.ParseRate(p.Rate)
		if err != nil {
			return nil, fmt.Errorf("stored rate of prize %d: %w", p.ID, err)
		}
		projected[p.ID] = rate
		names[p.ID] = p.Name
	}

	plan := &ratePlan{
		eventID: eventID,
		rates:   make(map[uint64]domain.Rate, len(updates)),
		names:   names,
	}

	for _, u := range updates {
		rate, err := domain.ParseRate(*u.Rate)
		if err != nil {
			return nil, err
		}

		if _, ok := projected[u.PrizeID]; !ok {
			if _, err := s.prizeRepo.FindByID(ctx, u.PrizeID); err != nil {
				return nil, err
			}
			return nil, domain.NewDomainError(domain.ErrPrizeEventMismatch)
		}
		if err := domain.ValidatePrizeName(names[u.PrizeID]); err != nil {
			return nil, err
		}

		projected[u.PrizeID] = rate
		plan.rates[u.PrizeID] = rate
	}

	var total domain.Rate
	for _, r := range projected {
		total += r
	}
	if total > domain.RateOne {
		logger.Warn("rejected prize rate update", "event_id", eventID, "total_rate", total.String())
		return nil, domain.NewDomainError(fmt.Errorf("%w: %s", domain.ErrRateTotalExceeded, total))
	}

	return plan, nil
}

func (s *managementService) applyRates(ctx context.Context, plan *ratePlan) error {
	durable := make(map[uint64]decimal.Decimal, len(plan.rates))
	for id, r := range plan.rates {
		durable[id] = r.Decimal()
	}

	if err := s.prizeRepo.UpdateRates(ctx, durable); err != nil {
		return err
	}

	for id, r := range plan.rates {
		if err := s.catalog.PutRate(ctx, plan.eventID, plan.names[id], r); err != nil {
			return err
		}
	}

	logger.Info("prize rates updated", "event_id", plan.eventID, "count", len(plan.rates))
	return nil
}

func (s *managementService) UpdateEventActiveStatus(ctx context.Context, eventID uint64, active bool) error {
	return s.store.SetFlag(ctx, ledger.EventActiveKey(eventID), active)
}

func (s *managementService) UpdateRemainAmount(ctx context.Context, eventID uint64, remain int) error {
	if remain < 0 {
		return domain.NewDomainError(fmt.Errorf("remain amount cannot be negative: %d", remain))
	}
	return s.store.Set(ctx, ledger.EventRemainKey(eventID), int64(remain))
}

// RefreshCache overwrites every cached value of the event with the durable
// one.
func (s *managementService) RefreshCache(ctx context.Context, eventID uint64) error {
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return err
	}

	if err := s.UpdateEventActiveStatus(ctx, eventID, event.IsActive); err != nil {
		return err
	}
	if err := s.store.Set(ctx, ledger.EventRemainKey(eventID), int64(event.RemainAmount)); err != nil {
		return err
	}

	return s.catalog.Refresh(ctx, eventID)
}

// ClearCache drops the event flag, budget, rate map and stock counters.
// User allowances are kept.
func (s *managementService) ClearCache(ctx context.Context, eventID uint64) error {
	prizes, err := s.prizeRepo.FindByEventID(ctx, eventID)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, ledger.EventActiveKey(eventID), ledger.EventRemainKey(eventID)); err != nil {
		return err
	}

	if err := s.catalog.Clear(ctx, eventID, prizes); err != nil {
		return err
	}

	logger.Warn("lottery cache cleared", "event_id", eventID)
	return nil
}

// ClearByPrefix removes every cached key of the event, user allowances
// included.
func (s *managementService) ClearByPrefix(ctx context.Context, eventID uint64) (int, error) {
	n, err := s.store.DeleteByPrefix(ctx, ledger.EventKeyPrefix(eventID))
	if err != nil {
		return n, err
	}

	logger.Warn("lottery keys deleted by prefix", "event_id", eventID, "keys", n)
	return n, nil
}

// GetLotteryStatus composes the event state from the cache, falling back to
// durable values for anything not cached.
func (s *managementService) GetLotteryStatus(ctx context.Context, eventID uint64) (domain.LotteryStatus, error) {
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return domain.LotteryStatus{}, err
	}

	active, ok, err := s.store.GetFlag(ctx, ledger.EventActiveKey(eventID))
	if err != nil {
		return domain.LotteryStatus{}, err
	}
	if !ok {
		active = event.IsActive
	}

	remain, err := s.remainOf(ctx, event)
	if err != nil {
		return domain.LotteryStatus{}, err
	}

	prizes, err := s.prizeRepo.FindByEventID(ctx, eventID)
	if err != nil {
		return domain.LotteryStatus{}, err
	}

	status := domain.LotteryStatus{
		EventID:      event.ID,
		EventName:    event.Name,
		IsActive:     active,
		RemainAmount: remain,
		Prizes:       make([]domain.PrizeInfo, 0, len(prizes)),
	}

	for _, p := range prizes {
		rate, ok, err := s.catalog.RateOf(ctx, eventID, p.Name)
		if err != nil {
			return domain.LotteryStatus{}, err
		}
		if !ok {
			if rate, err = domain.ParseRate(p.Rate); err != nil {
				return domain.LotteryStatus{}, err
			}
		}

		stock, ok, err := s.catalog.StockOf(ctx, eventID, p.Name)
		if err != nil {
			return domain.LotteryStatus{}, err
		}
		if !ok {
			stock = int64(p.Amount)
		}

		status.TotalRate += rate
		status.Prizes = append(status.Prizes, domain.PrizeInfo{
			PrizeID:   p.ID,
			PrizeName: p.Name,
			Rate:      rate,
			Stock:     stock,
		})
	}

	return status, nil
}

func (s *managementService) GetAllEvents(ctx context.Context) ([]domain.LotteryEventSummary, error) {
	events, err := s.eventRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.LotteryEventSummary, 0, len(events))
	for _, e := range events {
		remain, err := s.remainOf(ctx, e)
		if err != nil {
			return nil, err
		}

		out = append(out, domain.LotteryEventSummary{
			ID:            e.ID,
			Name:          e.Name,
			RemainAmount:  remain,
			IsActive:      e.IsActive,
			SettingAmount: e.SettingAmount,
			CreatedTime:   e.CreatedTime,
			UpdatedTime:   e.UpdatedTime,
		})
	}

	return out, nil
}

func (s *managementService) SyncHistory(ctx context.Context, eventID uint64, limit int) ([]domain.SyncAudit, error) {
	return s.auditRepo.FindByEventID(ctx, eventID, limit)
}

func (s *managementService) remainOf(ctx context.Context, event domain.LotteryEvent) (int64, error) {
	remain, ok, err := s.store.Get(ctx, ledger.EventRemainKey(event.ID))
	if err != nil {
		return 0, err
	}
	if !ok {
		return int64(event.RemainAmount), nil
	}
	return remain, nil
}
