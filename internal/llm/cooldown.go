package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a call is issued before the collaborator's
// cooldown has elapsed. It is never folded into a response string.
var ErrRateLimited = errors.New("llm: rate limited, cooldown has not elapsed")

// Cooldown enforces a minimum interval between calls. It is a single-token
// limiter: a call consumes the token and the token refills after the interval.
type Cooldown struct {
	interval time.Duration
	limiter  *rate.Limiter
	now      func() time.Time
}

// NewCooldown builds a Cooldown with the given interval. A zero interval never
// refuses a call. now is the clock used by Take; nil means time.Now.
func NewCooldown(interval time.Duration, now func() time.Time) *Cooldown {
	if now == nil {
		now = time.Now
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Cooldown{
		interval: interval,
		limiter:  rate.NewLimiter(limit, 1),
		now:      now,
	}
}

func (c *Cooldown) Interval() time.Duration {
	return c.interval
}

// Take consumes the token or fails with ErrRateLimited.
func (c *Cooldown) Take() error {
	if !c.limiter.AllowN(c.now(), 1) {
		return fmt.Errorf("%w (interval %s)", ErrRateLimited, c.interval)
	}
	return nil
}

// Wait blocks until the token is available or ctx is done.
func (c *Cooldown) Wait(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}
