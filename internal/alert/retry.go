package alert

import (
	"errors"
	"fmt"
	"time"
)

// DefaultRetryPolicy waits 2s, 4s and 8s for the acknowledgment
var DefaultRetryPolicy = RetryPolicy{2 * time.Second, 4 * time.Second, 8 * time.Second}

// RetryPolicy is the per-attempt acknowledgment timeout; its length is the attempt count
type RetryPolicy []time.Duration

// Attempts returns the maximum number of attempts
func (p RetryPolicy) Attempts() int {
	return len(p)
}

// Total returns the longest time SendAlert can spend waiting
func (p RetryPolicy) Total() time.Duration {
	var total time.Duration
	for _, d := range p {
		total += d
	}
	return total
}

func (p RetryPolicy) Validate() error {
	if len(p) == 0 {
		return errors.New("retry policy has no attempts")
	}
	for i, d := range p {
		if d <= 0 {
			return fmt.Errorf("retry policy attempt %d: timeout must be positive, got %s", i+1, d)
		}
	}
	return nil
}

// Strings formats the schedule for logs and event data
func (p RetryPolicy) Strings() []string {
	out := make([]string, len(p))
	for i, d := range p {
		out[i] = d.String()
	}
	return out
}
