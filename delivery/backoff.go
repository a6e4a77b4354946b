package delivery

import "time"

/* Backoff computes the wait before the next delivery attempt
 * The curve is exponential, doubling from the initial delay and capped
 * at the maximum: min(initial * 2^(n-1), max)
 */
type Backoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Delay returns the wait after the given failed attempt number (1-based).
func (b Backoff) Delay(attemptNumber int) time.Duration {
	if attemptNumber < 1 {
		attemptNumber = 1
	}

	delay := b.InitialDelay
	for i := 1; i < attemptNumber; i++ {
		delay *= 2
		if delay >= b.MaxDelay {
			return b.MaxDelay
		}
	}

	if delay > b.MaxDelay {
		return b.MaxDelay
	}
	return delay
}
