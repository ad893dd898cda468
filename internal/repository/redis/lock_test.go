package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLocker_TryLock(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewLocker(client)

	unlock, ok, err := l.TryLock(ctx, "lottery:1:lock", 50*time.Millisecond, time.Second)
	if err != nil || !ok {
		t.Fatalf("expected first lock to succeed, got %v %v", ok, err)
	}

	_, ok, err = l.TryLock(ctx, "lottery:1:lock", 60*time.Millisecond, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatalf("second lock must time out while held")
	}

	if err := unlock(ctx); err != nil {
		t.Fatal(err)
	}

	unlock2, ok, err := l.TryLock(ctx, "lottery:1:lock", 50*time.Millisecond, time.Second)
	if err != nil || !ok {
		t.Fatalf("expected lock after release, got %v %v", ok, err)
	}

	// a stale release must not free someone else's lease
	if err := unlock(ctx); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("lottery:1:lock") {
		t.Fatalf("stale unlock removed the current holder's lock")
	}
	_ = unlock2(ctx)
}
