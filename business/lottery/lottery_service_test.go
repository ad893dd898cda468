package lottery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"luckyDraw/business/catalog"
	"luckyDraw/business/ledger"
	"luckyDraw/domain"
	"luckyDraw/internal/repository/memory"
	redisRepo "luckyDraw/internal/repository/redis"
	"luckyDraw/pkg/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type fakeRecorder struct {
	mu    sync.Mutex
	tasks []domain.WinTask
}

func (r *fakeRecorder) Submit(task domain.WinTask) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
	return true
}

type fakeReconciler struct {
	mu     sync.Mutex
	causes []error
}

func (r *fakeReconciler) EmergencySync(ctx context.Context, eventID, userID uint64, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.causes = append(r.causes, cause)
}

func (r *fakeReconciler) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.causes)
}

type busyLocker struct{}

func (busyLocker) TryLock(ctx context.Context, key string, wait, lease time.Duration) (func(context.Context) error, bool, error) {
	return nil, false, nil
}

type failingPrizeRepo struct{}

func (failingPrizeRepo) FindByEventID(ctx context.Context, eventID uint64) ([]domain.LotteryPrize, error) {
	return nil, errors.New("connection refused")
}

type fixture struct {
	db         *memory.Store
	store      *redisRepo.CounterStore
	client     *redis.Client
	recorder   *fakeRecorder
	reconciler *fakeReconciler
	ledger     *ledger.Ledger
	catalog    *catalog.Catalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db := openStore(t)
	store := redisRepo.NewCounterStore(client)
	l := ledger.NewLedger(store, db.Events(), db.Quotas())

	return &fixture{
		db:         db,
		store:      store,
		client:     client,
		recorder:   &fakeRecorder{},
		reconciler: &fakeReconciler{},
		ledger:     l,
		catalog:    catalog.NewCatalog(l, db.Prizes()),
	}
}

func (f *fixture) service(opts Options) *lotteryService {
	return NewLotteryService(f.ledger, f.catalog, f.db.Events(), f.db.Prizes(), f.recorder, f.reconciler, redisRepo.NewLocker(f.client), opts)
}

func (f *fixture) event(t *testing.T, active bool, remain int) uint64 {
	t.Helper()

	e := domain.LotteryEvent{Name: "summer", IsActive: active, SettingAmount: remain, RemainAmount: remain}
	if err := f.db.Events().Create(context.Background(), &e); err != nil {
		t.Fatal(err)
	}
	return e.ID
}

func (f *fixture) prize(t *testing.T, eventID uint64, name, rate string, amount int) {
	t.Helper()

	p := domain.LotteryPrize{LotteryEventID: eventID, Name: name, Rate: decimal.RequireFromString(rate), Amount: amount}
	if err := f.db.Prizes().Create(context.Background(), &p); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) quota(t *testing.T, eventID, userID uint64, n int) {
	t.Helper()

	q := domain.UserLotteryQuota{UID: userID, LotteryEventID: eventID, DrawQuota: n}
	if err := f.db.Quotas().Save(context.Background(), &q); err != nil {
		t.Fatal(err)
	}
}

func TestDraw_Deterministic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	eventID := f.event(t, true, 100)
	f.prize(t, eventID, "A", "0.20", 10)
	f.prize(t, eventID, "B", "0.15", 10)
	f.prize(t, eventID, "C", "0.10", 10)
	f.quota(t, eventID, 1, 10)

	svc := f.service(Options{})

	for _, tc := range []struct {
		r    float64
		want string
	}{
		{0.05, "A"},
		{0.30, "B"},
		{0.50, Miss},
	} {
		svc.random = func() float64 { return tc.r }

		got, err := svc.Draw(ctx, eventID, 1, true)
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Errorf("r=%v: expected %s, got %s", tc.r, tc.want, got)
		}
	}

	if len(f.recorder.tasks) != 2 {
		t.Fatalf("expected 2 recorded wins, got %d", len(f.recorder.tasks))
	}
	if task := f.recorder.tasks[0]; task.PrizeName != "A" || task.UserID != 1 || task.DrawID == "" {
		t.Fatalf("unexpected win task: %+v", task)
	}
	if stock, _, _ := f.catalog.StockOf(ctx, eventID, "A"); stock != 9 {
		t.Fatalf("expected A stock 9, got %d", stock)
	}
}

func TestDraw_KeepResultFalseRecordsNothing(t *testing.T) {
	f := newFixture(t)

	eventID := f.event(t, true, 10)
	f.prize(t, eventID, "A", "1.00", 10)
	f.quota(t, eventID, 1, 1)

	got, err := f.service(Options{}).Draw(context.Background(), eventID, 1, false)
	if err != nil || got != "A" {
		t.Fatalf("expected A, got %s err=%v", got, err)
	}
	if len(f.recorder.tasks) != 0 {
		t.Fatalf("expected no recorded wins, got %d", len(f.recorder.tasks))
	}
}

func TestDraw_StockCap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	eventID := f.event(t, true, 1000)
	f.prize(t, eventID, "Grand", "1.00", 30)
	for uid := uint64(1); uid <= 100; uid++ {
		f.quota(t, eventID, uid, 5)
	}

	svc := f.service(Options{})

	var (
		mu     sync.Mutex
		wins   int
		misses int
		wg     sync.WaitGroup
	)
	for uid := uint64(1); uid <= 100; uid++ {
		wg.Add(1)
		go func(uid uint64) {
			defer wg.Done()
			got, err := svc.Draw(ctx, eventID, uid, false)
			if err != nil {
				t.Errorf("draw failed: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if got == Miss {
				misses++
			} else {
				wins++
			}
		}(uid)
	}
	wg.Wait()

	if wins > 30 || wins+misses != 100 {
		t.Fatalf("expected at most 30 wins out of 100, got wins=%d misses=%d", wins, misses)
	}

	stock, _, _ := f.catalog.StockOf(ctx, eventID, "Grand")
	if want := int64(max(0, 30-wins)); stock != want {
		t.Fatalf("expected final stock %d, got %d", want, stock)
	}
	if remain, _, _ := f.store.Get(ctx, ledger.EventRemainKey(eventID)); remain != 900 {
		t.Fatalf("expected event budget 900, got %d", remain)
	}
}

func TestDraw_ReservedPrizeNameIsNeverCached(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	eventID := f.event(t, true, 10)
	f.prize(t, eventID, Miss, "1.00", 3)
	f.quota(t, eventID, 1, 5)

	_, err := f.service(Options{}).Draw(ctx, eventID, 1, true)
	if !errors.Is(err, domain.ErrReservedPrizeName) || !domain.IsDomainError(err) {
		t.Fatalf("expected reserved name error, got %v", err)
	}
	if _, ok, _ := f.catalog.StockOf(ctx, eventID, Miss); ok {
		t.Fatalf("a prize named %s must not get a stock counter", Miss)
	}
	if len(f.recorder.tasks) != 0 {
		t.Fatalf("expected nothing recorded, got %d", len(f.recorder.tasks))
	}
}

func TestDraw_InactiveEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	eventID := f.event(t, false, 10)
	f.quota(t, eventID, 1, 1)

	_, err := f.service(Options{}).Draw(ctx, eventID, 1, true)
	if !errors.Is(err, domain.ErrEventNotActive) || !domain.IsDomainError(err) {
		t.Fatalf("expected event not active, got %v", err)
	}
	if f.reconciler.count() != 1 {
		t.Fatalf("expected emergency sync once, got %d", f.reconciler.count())
	}
	if ok, _ := f.store.Exists(ctx, ledger.UserChanceKey(eventID, 1)); ok {
		t.Fatalf("quota must not be touched for an inactive event")
	}
}

func TestDraw_UserExhaustedTriggersEmergencySync(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	eventID := f.event(t, true, 10)
	f.prize(t, eventID, "A", "0.50", 10)
	f.quota(t, eventID, 1, 1)

	svc := f.service(Options{})
	if _, err := svc.Draw(ctx, eventID, 1, false); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Draw(ctx, eventID, 1, false)
	if !errors.Is(err, domain.ErrUserExhausted) {
		t.Fatalf("expected user exhausted, got %v", err)
	}
	if f.reconciler.count() != 1 || !errors.Is(f.reconciler.causes[0], domain.ErrUserExhausted) {
		t.Fatalf("expected emergency sync with the draw error, got %v", f.reconciler.causes)
	}
}

func TestDraw_UnexpectedErrorBecomesSystemError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	eventID := f.event(t, true, 10)
	f.quota(t, eventID, 1, 1)

	c := catalog.NewCatalog(f.ledger, failingPrizeRepo{})
	svc := NewLotteryService(f.ledger, c, f.db.Events(), f.db.Prizes(), f.recorder, f.reconciler, nil, Options{})

	_, err := svc.Draw(ctx, eventID, 1, false)

	var sysErr *domain.SystemError
	if !errors.As(err, &sysErr) {
		t.Fatalf("expected system error, got %v", err)
	}
	if err.Error() != domain.GenericSystemMessage {
		t.Fatalf("expected generic message, got %q", err.Error())
	}
	if f.reconciler.count() != 1 {
		t.Fatalf("expected emergency sync once, got %d", f.reconciler.count())
	}
}

func TestDraw_MutexStrategy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	eventID := f.event(t, true, 10)
	f.prize(t, eventID, "A", "1.00", 1)
	f.quota(t, eventID, 1, 2)

	svc := f.service(Options{Strategy: config.StrategyMutex, LockWait: time.Second, LockLease: time.Second})

	for _, want := range []string{"A", Miss} {
		got, err := svc.Draw(ctx, eventID, 1, false)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}

	if ok, _ := f.store.Exists(ctx, ledger.EventLockKey(eventID)); ok {
		t.Fatalf("draw lock was not released")
	}
}

func TestDraw_MutexBusy(t *testing.T) {
	f := newFixture(t)

	eventID := f.event(t, true, 10)
	svc := NewLotteryService(f.ledger, f.catalog, f.db.Events(), f.db.Prizes(), f.recorder, f.reconciler, busyLocker{},
		Options{Strategy: config.StrategyMutex, LockWait: 10 * time.Millisecond, LockLease: time.Second})

	_, err := svc.Draw(context.Background(), eventID, 1, false)
	if !errors.Is(err, domain.ErrSystemBusy) || !domain.IsDomainError(err) {
		t.Fatalf("expected system busy, got %v", err)
	}
}

func TestIsEventActive_CachesDurableFlag(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	eventID := f.event(t, true, 10)
	svc := f.service(Options{})

	active, err := svc.IsEventActive(ctx, eventID)
	if err != nil || !active {
		t.Fatalf("expected active, got %v err=%v", active, err)
	}

	// the cached flag wins over the durable row until the cache is updated
	if err := f.store.SetFlag(ctx, ledger.EventActiveKey(eventID), false); err != nil {
		t.Fatal(err)
	}
	if err := svc.ValidateEventActive(ctx, eventID); !errors.Is(err, domain.ErrEventNotActive) {
		t.Fatalf("expected cached inactive flag to apply, got %v", err)
	}

	if _, err := svc.IsEventActive(ctx, 999); !domain.IsNotFound(err) {
		t.Fatalf("expected not found for unknown event, got %v", err)
	}
}

func TestInitPrizeStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	eventID := f.event(t, true, 77)
	f.prize(t, eventID, "A", "0.30", 4)
	f.prize(t, eventID, "B", "0.20", 0)

	if err := f.store.Set(ctx, ledger.EventRemainKey(eventID), 3); err != nil {
		t.Fatal(err)
	}

	if err := f.service(Options{}).InitPrizeStock(ctx, eventID); err != nil {
		t.Fatal(err)
	}

	if remain, _, _ := f.store.Get(ctx, ledger.EventRemainKey(eventID)); remain != 77 {
		t.Fatalf("expected budget reset to 77, got %d", remain)
	}
	rates, err := f.catalog.Rates(ctx, eventID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rates) != 1 || rates[0].Name != "A" {
		t.Fatalf("expected only stocked prizes in rate map, got %v", rates)
	}
}

func openStore(t *testing.T) *memory.Store {
	t.Helper()

	db, err := memory.NewStore()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
