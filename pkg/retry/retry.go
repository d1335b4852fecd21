package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/paul-minniti/XPoster/pkg/logger"
)

type Config struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      1.5,
	}
}

func Do(ctx context.Context, log logger.Logger, operationName string, operation func() error, cfg Config) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialInterval
	bo.MaxInterval = cfg.MaxInterval
	bo.Multiplier = cfg.Multiplier
	bo.Reset()

	retryable := backoff.WithMaxRetries(bo, cfg.MaxRetries)
	retryableWithContext := backoff.WithContext(retryable, ctx)

	notify := func(err error, t time.Duration) {
		log.Warn(
			"Operation failed, retrying...",
			"operation", operationName,
			"error", err,
			"next_attempt_in", t.Round(time.Millisecond).String(),
		)
	}

	return backoff.RetryNotify(operation, retryableWithContext, notify)
}

// Once runs the operation and retries it at most one time after a fixed delay.
// The operation opts out of the retry by returning backoff.Permanent(err);
// the second attempt is final regardless of outcome.
func Once(ctx context.Context, log logger.Logger, operationName string, delay time.Duration, operation func() error) error {
	bo := backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), 1)
	boWithContext := backoff.WithContext(bo, ctx)

	notify := func(err error, t time.Duration) {
		log.Warn(
			"Operation failed, retrying once...",
			"operation", operationName,
			"error", err,
			"next_attempt_in", t.Round(time.Millisecond).String(),
		)
	}

	return backoff.RetryNotify(operation, boWithContext, notify)
}
