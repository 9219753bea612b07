package throttle

import (
	"time"

	"github.com/LukeR5776/LyricAnalyzer/logcolors"
	log "github.com/sirupsen/logrus"
)

// Backoff retries fn with bounded exponential backoff. fn reports whether the
// failure is retryable (429-class responses, timeouts); non-retryable errors
// are returned as-is. The delay before attempt n is base * 2^(n-1), and at
// most maxRetries retries happen after the initial attempt. This is a one-off
// recovery at the call site, independent of the steady-state throttle.
func Backoff(base time.Duration, maxRetries int, fn func() (retryable bool, err error)) error {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	var err error
	for attempt := 0; ; attempt++ {
		var retryable bool
		retryable, err = fn()
		if err == nil {
			return nil
		}
		if !retryable || attempt >= maxRetries {
			return err
		}

		delay := base * (1 << attempt)
		log.Warnf("%s Attempt %d failed (%v), retrying in %v", logcolors.LogBackoff, attempt+1, err, delay)
		time.Sleep(delay)
	}
}
