package workflow

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacing bounds the random pause between consecutive downloads.
type Pacing struct {
	Min time.Duration
	Max time.Duration
}

// Sample draws a duration uniformly from [Min, Max] using r, which must
// return values in [0, 1). A nil r uses math/rand/v2.
func (p Pacing) Sample(r func() float64) time.Duration {
	if p.Max <= p.Min {
		return max(p.Min, 0)
	}
	if r == nil {
		r = rand.Float64
	}
	return p.Min + time.Duration(r()*float64(p.Max-p.Min))
}

// Sleeper pauses for d or until ctx is done, returning ctx.Err() in the
// latter case.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
