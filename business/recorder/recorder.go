// Package recorder persists winning draws on a worker pool, outside the
// request that produced them.
package recorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"luckyDraw/business/ledger"
	"luckyDraw/domain"
	"luckyDraw/pkg/logger"
	"luckyDraw/pkg/metrics"
)

const (
	unknownEvent = "Unknown Event"
	unknownPrize = "Unknown Prize"
)

type PrizeRepository interface {
	FindByID(ctx context.Context, id uint64) (domain.LotteryPrize, error)
	FindByEventIDAndName(ctx context.Context, eventID uint64, name string) (domain.LotteryPrize, error)
}

type EventRepository interface {
	FindByID(ctx context.Context, id uint64) (domain.LotteryEvent, error)
}

type WinRecordRepository interface {
	Create(ctx context.Context, record *domain.WinRecord) error
	FindByUserID(ctx context.Context, userID uint64) ([]domain.WinRecord, error)
}

// CounterReader is the part of the counter store the recorder needs.
type CounterReader interface {
	Get(ctx context.Context, key string) (int64, bool, error)
}

type Options struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

type Recorder struct {
	counters  CounterReader
	prizeRepo PrizeRepository
	eventRepo EventRepository
	winRepo   WinRecordRepository
	opts      Options

	tasks chan domain.WinTask
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewRecorder(counters CounterReader, prizeRepo PrizeRepository, eventRepo EventRepository, winRepo WinRecordRepository, opts Options) *Recorder {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize < 0 {
		opts.QueueSize = 0
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}

	return &Recorder{
		counters:  counters,
		prizeRepo: prizeRepo,
		eventRepo: eventRepo,
		winRepo:   winRepo,
		opts:      opts,
		tasks:     make(chan domain.WinTask, opts.QueueSize),
	}
}

func (r *Recorder) Start() {
	for i := 0; i < r.opts.Workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	logger.Info("win recorder started", "workers", r.opts.Workers, "queue_size", r.opts.QueueSize)
}

// Submit queues a win without blocking. It reports false when the task was
// dropped because the queue is full or the recorder is stopped.
func (r *Recorder) Submit(task domain.WinTask) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		metrics.WinRecordTotal.WithLabelValues("dropped").Inc()
		logger.Error("win recorder stopped, dropping win record", "draw_id", task.DrawID, "event_id", task.EventID, "user_id", task.UserID)
		return false
	}

	select {
	case r.tasks <- task:
		return true
	default:
		metrics.WinRecordTotal.WithLabelValues("dropped").Inc()
		logger.Error("win recorder queue full, dropping win record",
			"draw_id", task.DrawID,
			"event_id", task.EventID,
			"user_id", task.UserID,
			"prize", task.PrizeName,
		)
		return false
	}
}

// Stop refuses new tasks and waits for queued ones to drain or ctx to end.
func (r *Recorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.tasks)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("win recorder stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("win recorder drain: %w", ctx.Err())
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for task := range r.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.Timeout)
		record, err := r.Record(ctx, task)
		cancel()

		if err != nil {
			metrics.WinRecordTotal.WithLabelValues("failed").Inc()
			logger.Error("failed to save win record",
				"draw_id", task.DrawID,
				"event_id", task.EventID,
				"user_id", task.UserID,
				"prize", task.PrizeName,
				"error", err,
			)
			continue
		}

		metrics.WinRecordTotal.WithLabelValues("saved").Inc()
		logger.Info("win record saved", "record_id", record.ID, "draw_id", task.DrawID)
	}
}

// Record writes one win synchronously. The stock snapshot comes from the
// cache, or from the prize row when the cache has no counter.
func (r *Recorder) Record(ctx context.Context, task domain.WinTask) (domain.WinRecord, error) {
	prize, err := r.prizeRepo.FindByEventIDAndName(ctx, task.EventID, task.PrizeName)
	if err != nil {
		return domain.WinRecord{}, err
	}

	remain := prize.Amount
	stock, ok, err := r.counters.Get(ctx, ledger.PrizeStockKey(task.EventID, task.PrizeName))
	if err != nil {
		return domain.WinRecord{}, err
	}
	if ok {
		remain = int(stock)
	}

	record := domain.WinRecord{
		DrawID:            task.DrawID,
		LotteryEventID:    task.EventID,
		UID:               task.UserID,
		DrawPrizeID:       prize.ID,
		RemainPrizeAmount: remain,
		CreatedTime:       time.Now(),
	}
	if err := r.winRepo.Create(ctx, &record); err != nil {
		return domain.WinRecord{}, err
	}

	return record, nil
}

func (r *Recorder) UserWinRecords(ctx context.Context, userID uint64) ([]domain.WinRecordView, error) {
	records, err := r.winRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]domain.WinRecordView, 0, len(records))
	for _, rec := range records {
		eventName := unknownEvent
		if event, err := r.eventRepo.FindByID(ctx, rec.LotteryEventID); err == nil {
			eventName = event.Name
		} else if !domain.IsNotFound(err) {
			return nil, err
		}

		prizeName := unknownPrize
		if prize, err := r.prizeRepo.FindByID(ctx, rec.DrawPrizeID); err == nil {
			prizeName = prize.Name
		} else if !domain.IsNotFound(err) {
			return nil, err
		}

		views = append(views, domain.WinRecordView{
			ID:                rec.ID,
			LotteryEventID:    rec.LotteryEventID,
			EventName:         eventName,
			UID:               rec.UID,
			DrawPrizeID:       rec.DrawPrizeID,
			PrizeName:         prizeName,
			RemainPrizeAmount: rec.RemainPrizeAmount,
			CreatedTime:       rec.CreatedTime,
		})
	}

	return views, nil
}
