package retry

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sleeper schedules the backoff delay between attempts. Production code uses
// SleepWithContext; tests inject a recorder to assert the exact delays
// without waiting on real time.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepWithContext waits for d or until ctx is done, whichever comes first.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs op up to attempts times with exponential backoff: the first retry
// waits baseDelay, and each subsequent retry doubles the previous delay.
// A successful attempt returns immediately with no further delay. Once the
// attempt budget is exhausted the last error is returned, never swallowed.
func Do[T any](ctx context.Context, op func(ctx context.Context) (T, error), attempts int, baseDelay time.Duration, sleep Sleeper) (T, error) {
	var zero T
	if attempts < 1 {
		attempts = 1
	}
	if sleep == nil {
		sleep = SleepWithContext
	}

	var lastErr error
	delay := baseDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		log.Debug().
			Err(err).
			Int("attempt", attempt).
			Dur("next_delay", delay).
			Msg("Attempt failed, backing off")

		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
		delay *= 2
	}

	return zero, lastErr
}
