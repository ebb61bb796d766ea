package rate

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	xrate "golang.org/x/time/rate"
)

// MemoryLimiter es un token bucket por clave: capacidad Max, recarga completa
// cada Window. Las claves inactivas se descartan tras dos ventanas.
type MemoryLimiter struct {
	max     int
	every   xrate.Limit
	mu      sync.Mutex
	buckets *gocache.Cache
	now     func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	if max < 1 {
		max = 1
	}
	return &MemoryLimiter{
		max:     max,
		every:   xrate.Every(window / time.Duration(max)),
		buckets: gocache.New(2*window, window),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) bucket(key string) *xrate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.buckets.Get(key); ok {
		l.buckets.SetDefault(key, v)
		return v.(*xrate.Limiter)
	}
	b := xrate.NewLimiter(l.every, l.max)
	l.buckets.SetDefault(key, b)
	return b
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	b := l.bucket(key)
	now := l.now()

	r := b.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Result{Allowed: false, RetryAfter: delay}, nil
	}
	remaining := int64(b.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Remaining: remaining}, nil
}
