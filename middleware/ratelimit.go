package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/broady/openfetch"
)

// RateLimitConfig configures the RateLimit hook.
type RateLimitConfig struct {
	Rate    float64                                 // requests per second
	Burst   int                                     // max burst
	KeyFunc func(fc *openfetch.FetchContext) string // default: client name
	// NoWait fails calls over the limit instead of delaying them.
	NoWait bool
}

// ErrRateLimited is returned by the RateLimit hook in NoWait mode.
var ErrRateLimited = errors.New("rate limited")

// RateLimit returns an onRequest hook that applies per-key client-side rate
// limiting. By default each client gets its own limiter and calls over the
// limit wait until a token is available or ctx is done.
func RateLimit(cfg RateLimitConfig) openfetch.Hook {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(fc *openfetch.FetchContext) string { return fc.Client }
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)
	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[key]
		if !ok {
			l = rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst)
			limiters[key] = l
		}
		return l
	}

	return func(ctx context.Context, fc *openfetch.FetchContext) error {
		key := cfg.KeyFunc(fc)
		l := limiterFor(key)
		if cfg.NoWait {
			if !l.Allow() {
				return fmt.Errorf("%w: %s", ErrRateLimited, key)
			}
			return nil
		}
		return l.Wait(ctx)
	}
}
