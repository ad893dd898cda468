package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"luckyDraw/domain"

	"github.com/redis/go-redis/v9"
)

// key format for the insertion order of a hash map: "{map_key}:order"
const mapOrderSuffix = ":order"

var (
	// returns 1 when the swap happened; an absent key compares as 0
	compareAndSetScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur == false then cur = '0' end
if tonumber(cur) == tonumber(ARGV[1]) then
  redis.call('SET', KEYS[1], ARGV[2])
  return 1
end
return 0`)

	// returns the new value, or -1 when the counter is absent or not positive
	decrementIfPositiveScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
if cur <= 0 then return -1 end
return redis.call('DECR', KEYS[1])`)

	mapPutAllScript = redis.NewScript(`
for i = 1, #ARGV, 2 do
  if redis.call('HEXISTS', KEYS[1], ARGV[i]) == 0 then
    redis.call('RPUSH', KEYS[2], ARGV[i])
  end
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
end
return #ARGV / 2`)

	// writes only into a map that already exists; returns 1 when written
	mapPutIfExistsScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return 0 end
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 0 then
  redis.call('RPUSH', KEYS[2], ARGV[1])
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 1`)

	mapEntriesScript = redis.NewScript(`
local names = redis.call('LRANGE', KEYS[2], 0, -1)
local out = {}
for _, n in ipairs(names) do
  local v = redis.call('HGET', KEYS[1], n)
  if v then
    table.insert(out, n)
    table.insert(out, v)
  end
end
return out`)
)

// CounterStore is the shared counter cache. Every method is a single atomic
// step on the server; nothing is guarded in-process.
type CounterStore struct {
	client *redis.Client
}

func NewCounterStore(client *redis.Client) *CounterStore {
	return &CounterStore{
		client: client,
	}
}

func (s *CounterStore) Get(ctx context.Context, key string) (int64, bool, error) {
	val, err := s.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get counter %s: %w", key, err)
	}

	return val, true, nil
}

func (s *CounterStore) Set(ctx context.Context, key string, value int64) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set counter %s: %w", key, err)
	}

	return nil
}

func (s *CounterStore) SetIfAbsent(ctx context.Context, key string, value int64) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to seed counter %s: %w", key, err)
	}

	return ok, nil
}

func (s *CounterStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check key existence %s: %w", key, err)
	}

	return n > 0, nil
}

func (s *CounterStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}

	return nil
}

func (s *CounterStore) IncrementAndGet(ctx context.Context, key string) (int64, error) {
	val, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}

	return val, nil
}

func (s *CounterStore) DecrementAndGet(ctx context.Context, key string) (int64, error) {
	val, err := s.client.Decr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to decrement %s: %w", key, err)
	}

	return val, nil
}

func (s *CounterStore) CompareAndSet(ctx context.Context, key string, expect, update int64) (bool, error) {
	n, err := compareAndSetScript.Run(ctx, s.client, []string{key}, expect, update).Int()
	if err != nil {
		return false, fmt.Errorf("failed to compare-and-set %s: %w", key, err)
	}

	return n == 1, nil
}

// DecrementIfPositive never lets the stored value drop below zero, so other
// readers cannot observe a transient negative.
func (s *CounterStore) DecrementIfPositive(ctx context.Context, key string) (int64, bool, error) {
	val, err := decrementIfPositiveScript.Run(ctx, s.client, []string{key}).Int64()
	if err != nil {
		return 0, false, fmt.Errorf("failed to decrement %s: %w", key, err)
	}
	if val < 0 {
		return 0, false, nil
	}

	return val, true, nil
}

func (s *CounterStore) GetFlag(ctx context.Context, key string) (bool, bool, error) {
	raw, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("failed to get flag %s: %w", key, err)
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("invalid flag value %q at %s: %w", raw, key, err)
	}

	return val, true, nil
}

func (s *CounterStore) SetFlag(ctx context.Context, key string, value bool) error {
	if err := s.client.Set(ctx, key, strconv.FormatBool(value), 0).Err(); err != nil {
		return fmt.Errorf("failed to set flag %s: %w", key, err)
	}

	return nil
}

// ---- hash map ----

func (s *CounterStore) MapPut(ctx context.Context, key, field, value string) error {
	return s.MapPutAll(ctx, key, []domain.CacheEntry{{Field: field, Value: value}})
}

// MapPutAll writes all entries in one atomic step. New fields are appended to
// the insertion order; existing fields keep their position.
func (s *CounterStore) MapPutAll(ctx context.Context, key string, entries []domain.CacheEntry) error {
	if len(entries) == 0 {
		return nil
	}

	args := make([]any, 0, len(entries)*2)
	for _, e := range entries {
		args = append(args, e.Field, e.Value)
	}

	if err := mapPutAllScript.Run(ctx, s.client, []string{key, key + mapOrderSuffix}, args...).Err(); err != nil {
		return fmt.Errorf("failed to put map entries at %s: %w", key, err)
	}

	return nil
}

// MapPutIfExists writes field only when the map at key exists, in one step
// with the existence check. It never creates the map.
func (s *CounterStore) MapPutIfExists(ctx context.Context, key, field, value string) (bool, error) {
	n, err := mapPutIfExistsScript.Run(ctx, s.client, []string{key, key + mapOrderSuffix}, field, value).Int()
	if err != nil {
		return false, fmt.Errorf("failed to put map field %s/%s: %w", key, field, err)
	}

	return n == 1, nil
}

func (s *CounterStore) MapGet(ctx context.Context, key, field string) (string, bool, error) {
	val, err := s.client.HGet(ctx, key, field).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get map field %s/%s: %w", key, field, err)
	}

	return val, true, nil
}

// MapEntries returns the map in insertion order.
func (s *CounterStore) MapEntries(ctx context.Context, key string) ([]domain.CacheEntry, error) {
	flat, err := mapEntriesScript.Run(ctx, s.client, []string{key, key + mapOrderSuffix}).StringSlice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read map %s: %w", key, err)
	}

	out := make([]domain.CacheEntry, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		out = append(out, domain.CacheEntry{Field: flat[i], Value: flat[i+1]})
	}

	return out, nil
}

func (s *CounterStore) MapDelete(ctx context.Context, key, field string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, key, field)
		pipe.LRem(ctx, key+mapOrderSuffix, 0, field)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete map field %s/%s: %w", key, field, err)
	}

	return nil
}

func (s *CounterStore) MapClear(ctx context.Context, key string) error {
	return s.Delete(ctx, key, key+mapOrderSuffix)
}

// DeleteByPrefix removes every key starting with prefix. Used for admin and
// test cleanup only; SCAN is not atomic with concurrent writers.
func (s *CounterStore) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	var (
		deleted int
		batch   []string
	)

	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= 100 {
			if err := s.Delete(ctx, batch...); err != nil {
				return deleted, err
			}
			deleted += len(batch)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to scan prefix %s: %w", prefix, err)
	}

	if err := s.Delete(ctx, batch...); err != nil {
		return deleted, err
	}
	deleted += len(batch)

	return deleted, nil
}

// Ping is used by health checks.
func (s *CounterStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
