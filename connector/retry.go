package connector

import (
	"context"
	"fmt"
	"time"
)

// retryConnect attempts connectFn with exponential backoff.
func retryConnect(ctx context.Context, cfg RetryConfig, connectFn func(context.Context) (Connection, error)) (Connection, error) {
	attempts := cfg.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	delay := cfg.BaseDelay
	if delay == 0 {
		delay = time.Second
	}

	var err error
	for i := 0; i < attempts; i++ {
		var conn Connection
		conn, err = connectFn(ctx)
		if err == nil {
			return conn, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
			delay *= 2
			if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}
	}
	return nil, fmt.Errorf("failed to connect after %d attempts: %w", attempts, err)
}
