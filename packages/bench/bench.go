package bench

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Result is what one send reports back to Run.
type Result struct {
	Status    int
	Duration  time.Duration
	ErrorCode int
}

// SendFunc performs one send. An error stops the run.
type SendFunc func(ctx context.Context, i int) (Result, error)

// Config controls a run
type Config struct {
	// Count is the number of sends, at least one.
	Count int
	// Rate caps sends per second; zero or less means as fast as possible.
	Rate float64
}

// Run calls send cfg.Count times in sequence, waiting for the rate limiter
// between sends. It stops early when ctx is cancelled and returns the
// summary of the sends made so far along with ctx's error.
func Run(ctx context.Context, cfg Config, send SendFunc) (*Summary, error) {
	var limiter *rate.Limiter
	if cfg.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}
	count := cfg.Count
	if count < 1 {
		count = 1
	}

	m := NewMetrics()
	m.Start()
	defer m.Stop()

	for i := 0; i < count; i++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				m.Stop()
				return m.Summary(), err
			}
		} else if err := ctx.Err(); err != nil {
			m.Stop()
			return m.Summary(), err
		}

		res, err := send(ctx, i)
		if err != nil {
			m.Stop()
			return m.Summary(), err
		}
		m.Record(res.Status, res.Duration, res.ErrorCode)
	}

	m.Stop()
	return m.Summary(), nil
}
