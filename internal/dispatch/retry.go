package dispatch

import "time"

// maxBackoff caps the exponential delay so a flapping platform is retried
// within the same day.
const maxBackoff = 2 * time.Hour

// Backoff returns the delay before retry attempt n (1-based), doubling from
// base: base, 2*base, 4*base, ... capped at maxBackoff.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	if delay > maxBackoff {
		return maxBackoff
	}
	return delay
}
