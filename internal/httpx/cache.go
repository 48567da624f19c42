package httpx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache adalah subset *redis.Client yang dipakai handler. Boleh nil; semua
// operasi cache best-effort, DB tetap sumber kebenaran.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}
