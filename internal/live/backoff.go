package live

import (
	"math"
	"math/rand"
	"time"
)

// ExponentialBackoff returns the wait before reconnect attempt n (0-based):
// 500ms, 1s, 2s, ... capped at 30s, plus up to 250ms of jitter.
func ExponentialBackoff(attempt int) time.Duration {
	base := 500 * time.Millisecond
	capDelay := 30 * time.Second

	if attempt < 0 {
		attempt = 0
	}
	if attempt > 16 {
		attempt = 16
	}

	multiple := math.Pow(2, float64(attempt))
	delay := time.Duration(float64(base) * multiple)

	if delay > capDelay {
		delay = capDelay
	}

	// small jitter to avoid every replica reconnecting at once
	delay += time.Duration(rand.Intn(250)) * time.Millisecond
	return delay
}
