package watch

import "time"

// Backoff computes the re-arm delay after consecutive failed runs. It is
// immutable after construction.
type Backoff struct {
	Mode    string        // fixed|linear|exponential
	Initial time.Duration // base delay
	Max     time.Duration // cap for growth
}

// DefaultBackoff returns the standard policy (linear, 1s initial, 30s cap).
func DefaultBackoff() Backoff {
	return Backoff{Mode: "linear", Initial: time.Second, Max: 30 * time.Second}
}

// Delay returns the delay for the given consecutive failure count (1-based).
func (b Backoff) Delay(failures int) time.Duration {
	if failures <= 0 {
		return 0
	}

	initial := b.Initial
	if initial <= 0 {
		initial = time.Second
	}
	limit := b.Max
	if limit <= 0 {
		limit = 30 * time.Second
	}

	var d time.Duration
	switch b.Mode {
	case "fixed":
		d = initial
	case "exponential":
		if failures > 20 {
			return limit
		}
		d = initial << (failures - 1)
	default: // linear
		d = time.Duration(failures) * initial
	}
	if d > limit {
		return limit
	}
	return d
}
