package util

import (
	"fmt"
	"os"
	"time"
)

// SleepFn is the function used to wait between retry attempts.
// It is a var so tests can run without real delays.
var SleepFn = time.Sleep

// Retry runs fn up to attempts times, doubling the delay between attempts
// starting from baseDelay. It returns nil on the first success, or the last
// error once the attempts are exhausted. Used for registry pushes/pulls and
// other network operations; builds are deliberately never retried.
func Retry(attempts int, baseDelay time.Duration, op string, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	delay := baseDelay
	for i := 1; i <= attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts {
			fmt.Fprintf(os.Stderr, "Warning: %s failed (attempt %d/%d), retrying in %s: %v\n", op, i, attempts, delay, err)
			SleepFn(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, err)
}
