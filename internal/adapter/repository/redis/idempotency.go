package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"multilend/internal/usecase/idempotency"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "idemp:"

// entry is what lives under a key: a provisional lock while the request is
// in flight, then the final response.
type entry struct {
	InProgress bool               `json:"in_progress"`
	Record     idempotency.Record `json:"record"`
}

type IdempotencyStore struct{ rdb *goredis.Client }

func NewIdempotencyStore(rdb *goredis.Client) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (*idempotency.Record, error) {
	raw, err := s.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, idempotency.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get %s: %w", key, err)
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("redis: decode %s: %w", key, err)
	}
	if e.InProgress {
		return nil, idempotency.ErrNotFound
	}
	return &e.Record, nil
}

func (s *IdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	payload, _ := json.Marshal(entry{InProgress: true})
	ok, err := s.rdb.SetNX(ctx, keyPrefix+key, payload, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: reserve %s: %w", key, err)
	}
	return ok, nil
}

// releaseScript deletes the key only while it still holds a provisional lock.
var releaseScript = goredis.NewScript(`
local v = redis.call("GET", KEYS[1])
if v and string.find(v, '"in_progress":true', 1, true) then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, s.rdb, []string{keyPrefix + key}).Err(); err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("redis: release %s: %w", key, err)
	}
	return nil
}

func (s *IdempotencyStore) Save(ctx context.Context, key string, rec idempotency.Record, ttl time.Duration) error {
	payload, err := json.Marshal(entry{Record: rec})
	if err != nil {
		return fmt.Errorf("redis: encode %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, keyPrefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis: save %s: %w", key, err)
	}
	return nil
}
