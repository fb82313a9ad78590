package redisx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// dedup:{scope}:{id}
const KeyDedup = "dedup:%s:%s"

// コールバックの再送は数日続くことがある
var TTLDedup = 48 * time.Hour

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// 初回だけtrueを返す重複排除。処理に失敗したらForgetで印を外す
type Deduper interface {
	FirstSeen(ctx context.Context, scope, id string) (bool, error)
	Forget(ctx context.Context, scope, id string) error
}

type RedisDeduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDeduper(rdb *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = TTLDedup
	}
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

// SETNXで記録できたら初回
func (d *RedisDeduper) FirstSeen(ctx context.Context, scope, id string) (bool, error) {
	key := fmt.Sprintf(KeyDedup, scope, id)
	ok, err := d.rdb.SetNX(ctx, key, time.Now().Unix(), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

func (d *RedisDeduper) Forget(ctx context.Context, scope, id string) error {
	key := fmt.Sprintf(KeyDedup, scope, id)
	if err := d.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// REDIS_ADDR未設定時とテスト用。プロセス内でだけ効く
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	if ttl <= 0 {
		ttl = TTLDedup
	}
	return &MemoryDeduper{seen: map[string]time.Time{}, ttl: ttl, now: time.Now}
}

func (d *MemoryDeduper) FirstSeen(_ context.Context, scope, id string) (bool, error) {
	key := fmt.Sprintf(KeyDedup, scope, id)

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if exp, ok := d.seen[key]; ok && exp.After(now) {
		return false, nil
	}
	d.seen[key] = now.Add(d.ttl)
	return true, nil
}

func (d *MemoryDeduper) Forget(_ context.Context, scope, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, fmt.Sprintf(KeyDedup, scope, id))
	return nil
}
