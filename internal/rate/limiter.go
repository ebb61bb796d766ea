// Package rate limita requests por clave (IP + endpoint) con ventana fija en
// Redis o, sin Redis, con token buckets en memoria.
package rate

import (
	"context"
	"fmt"
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// Result es la decisión para un request.
type Result struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
	// Hits cuenta los intentos de la ventana actual, incluido este.
	CurrentHits int64
}

// Limiter decide si un request identificado por key puede pasar.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// windowScript incrementa el contador de la ventana y fija su expiración solo en
// el primer hit. Retorna {hits, pttl}.
var windowScript = rdb.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {hits, redis.call("PTTL", KEYS[1])}
`)

// RedisLimiter implementa ventana fija compartida entre réplicas.
type RedisLimiter struct {
	client *rdb.Client
	prefix string
	max    int64
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "weasl:rate:"
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{client: client, prefix: prefix, max: int64(max), window: window, now: time.Now}
}

func (l *RedisLimiter) key(k string) string {
	start := l.now().UTC().Truncate(l.window).Unix()
	return fmt.Sprintf("%s%s:%d", l.prefix, strings.ReplaceAll(k, " ", "_"), start)
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	vals, err := windowScript.Run(ctx, l.client, []string{l.key(key)}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate: redis: %w", err)
	}
	if len(vals) != 2 {
		return Result{}, fmt.Errorf("rate: redis: unexpected reply %v", vals)
	}
	hits, pttl := vals[0], time.Duration(vals[1])*time.Millisecond

	res := Result{Allowed: hits <= l.max, Remaining: max(l.max-hits, 0), CurrentHits: hits}
	if !res.Allowed {
		res.RetryAfter = pttl
		if res.RetryAfter <= 0 {
			res.RetryAfter = l.window
		}
	}
	return res, nil
}
