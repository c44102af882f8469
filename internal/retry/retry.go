// Package retry provides the bounded-attempt loop shared by the login
// submit sequence and other unstable interactions. The site registers some
// clicks only after its scripts finish attaching listeners, so a fixed
// number of attempts with a pause between them is the tolerated failure
// model everywhere.
package retry

import (
	"time"

	"github.com/arieldaniely/AutoPagi/internal/logging"
)

// Config bounds one retry loop.
type Config struct {
	Attempts int
	Pause    time.Duration
}

// Do runs fn up to cfg.Attempts times, pausing cfg.Pause between attempts.
// It stops at the first nil error. The last error is returned once all
// attempts are exhausted; callers wrap it into their own typed failure.
func Do(cfg Config, log logging.Logger, action string, fn func(attempt int) error) error {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			if attempt > 1 {
				log.Info(action+" succeeded after retry",
					logging.F(logging.FieldAttempt, attempt))
			}
			return nil
		}

		log.WithError(lastErr).Warn(action+" attempt failed",
			logging.F(logging.FieldAttempt, attempt))

		if attempt < cfg.Attempts && cfg.Pause > 0 {
			time.Sleep(cfg.Pause)
		}
	}
	return lastErr
}
