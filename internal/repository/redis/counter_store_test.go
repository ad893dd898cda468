package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"luckyDraw/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*CounterStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCounterStore(client), mr
}

func TestCounterStore_GetSetExists(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	if _, ok, err := s.Get(ctx, "c"); err != nil || ok {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}

	if err := s.Set(ctx, "c", 7); err != nil {
		t.Fatal(err)
	}

	v, ok, err := s.Get(ctx, "c")
	if err != nil || !ok || v != 7 {
		t.Fatalf("expected 7, got %d ok=%v err=%v", v, ok, err)
	}

	exists, err := s.Exists(ctx, "c")
	if err != nil || !exists {
		t.Fatalf("expected key to exist")
	}

	if err := s.Delete(ctx, "c"); err != nil {
		t.Fatal(err)
	}
	if exists, _ := s.Exists(ctx, "c"); exists {
		t.Fatalf("expected key to be deleted")
	}
}

func TestCounterStore_SetIfAbsent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	won, err := s.SetIfAbsent(ctx, "seed", 50)
	if err != nil || !won {
		t.Fatalf("first seed should win, got %v %v", won, err)
	}

	won, err = s.SetIfAbsent(ctx, "seed", 99)
	if err != nil || won {
		t.Fatalf("second seed should lose, got %v %v", won, err)
	}

	if v, _, _ := s.Get(ctx, "seed"); v != 50 {
		t.Fatalf("expected seed to stay 50, got %d", v)
	}
}

func TestCounterStore_CompareAndSet(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	// absent compares as zero
	ok, err := s.CompareAndSet(ctx, "cas", 0, 10)
	if err != nil || !ok {
		t.Fatalf("expected swap on absent key, got %v %v", ok, err)
	}

	ok, err = s.CompareAndSet(ctx, "cas", 0, 20)
	if err != nil || ok {
		t.Fatalf("expected no swap, got %v %v", ok, err)
	}

	ok, err = s.CompareAndSet(ctx, "cas", 10, 20)
	if err != nil || !ok {
		t.Fatalf("expected swap, got %v %v", ok, err)
	}

	if v, _, _ := s.Get(ctx, "cas"); v != 20 {
		t.Fatalf("expected 20, got %d", v)
	}
}

func TestCounterStore_DecrementIfPositive(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	if _, ok, err := s.DecrementIfPositive(ctx, "missing"); err != nil || ok {
		t.Fatalf("absent counter must report exhausted, got %v %v", ok, err)
	}
	if exists, _ := s.Exists(ctx, "missing"); exists {
		t.Fatalf("exhausted decrement must not create the key")
	}

	const seed, callers = 30, 100
	if err := s.Set(ctx, "stock", seed); err != nil {
		t.Fatal(err)
	}

	var (
		wg      sync.WaitGroup
		success atomic.Int64
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, err := s.DecrementIfPositive(ctx, "stock"); err == nil && ok {
				success.Add(1)
			}
		}()
	}
	wg.Wait()

	if success.Load() != seed {
		t.Fatalf("expected %d successful decrements, got %d", seed, success.Load())
	}
	if v, _, _ := s.Get(ctx, "stock"); v != 0 {
		t.Fatalf("expected counter at 0, got %d", v)
	}
}

func TestCounterStore_Flags(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	if _, ok, err := s.GetFlag(ctx, "active"); err != nil || ok {
		t.Fatalf("expected absent flag")
	}

	if err := s.SetFlag(ctx, "active", true); err != nil {
		t.Fatal(err)
	}

	v, ok, err := s.GetFlag(ctx, "active")
	if err != nil || !ok || !v {
		t.Fatalf("expected true flag, got %v %v %v", v, ok, err)
	}
}

func TestCounterStore_MapKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	err := s.MapPutAll(ctx, "rates", []domain.CacheEntry{
		{Field: "C", Value: "0.10"},
		{Field: "A", Value: "0.20"},
		{Field: "B", Value: "0.15"},
	})
	if err != nil {
		t.Fatal(err)
	}

	// overwrite keeps position
	if err := s.MapPut(ctx, "rates", "A", "0.25"); err != nil {
		t.Fatal(err)
	}

	entries, err := s.MapEntries(ctx, "rates")
	if err != nil {
		t.Fatal(err)
	}

	want := []domain.CacheEntry{
		{Field: "C", Value: "0.10"},
		{Field: "A", Value: "0.25"},
		{Field: "B", Value: "0.15"},
	}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d: expected %+v, got %+v", i, want[i], entries[i])
		}
	}

	if err := s.MapDelete(ctx, "rates", "A"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.MapGet(ctx, "rates", "A"); ok {
		t.Fatalf("expected A to be removed")
	}
	entries, _ = s.MapEntries(ctx, "rates")
	if len(entries) != 2 || entries[0].Field != "C" || entries[1].Field != "B" {
		t.Fatalf("unexpected entries after delete: %+v", entries)
	}

	if err := s.MapClear(ctx, "rates"); err != nil {
		t.Fatal(err)
	}
	entries, err = s.MapEntries(ctx, "rates")
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty map, got %+v %v", entries, err)
	}
}

func TestCounterStore_DeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	for _, k := range []string{"lottery:1:a", "lottery:1:b", "lottery:10:a", "lottery:2:a"} {
		if err := s.Set(ctx, k, 1); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.DeleteByPrefix(ctx, "lottery:1:")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deleted keys, got %d", n)
	}
	if !mr.Exists("lottery:10:a") || !mr.Exists("lottery:2:a") {
		t.Fatalf("unrelated keys must survive")
	}
}

func TestCounterStore_MapPutIfExists(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	ok, err := s.MapPutIfExists(ctx, "rates", "A", "0.20")
	if err != nil || ok {
		t.Fatalf("expected no write into an absent map, got ok=%v err=%v", ok, err)
	}
	if mr.Exists("rates") || mr.Exists("rates"+mapOrderSuffix) {
		t.Fatalf("an absent map must not be created")
	}

	if err := s.MapPutAll(ctx, "rates", []domain.CacheEntry{{Field: "B", Value: "0.10"}}); err != nil {
		t.Fatal(err)
	}

	for _, e := range []domain.CacheEntry{{Field: "A", Value: "0.20"}, {Field: "B", Value: "0.30"}} {
		if ok, err := s.MapPutIfExists(ctx, "rates", e.Field, e.Value); err != nil || !ok {
			t.Fatalf("expected %s written, got ok=%v err=%v", e.Field, ok, err)
		}
	}

	entries, err := s.MapEntries(ctx, "rates")
	if err != nil {
		t.Fatal(err)
	}
	want := []domain.CacheEntry{{Field: "B", Value: "0.30"}, {Field: "A", Value: "0.20"}}
	if len(entries) != len(want) || entries[0] != want[0] || entries[1] != want[1] {
		t.Fatalf("expected %+v, got %+v", want, entries)
	}
}
