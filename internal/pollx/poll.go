// Package pollx polls an eventually consistent surface with a bounded number
// of attempts and a fixed delay between them.
package pollx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/exporter3/internal/common"
	"github.com/sethvargo/go-retry"
)

// ErrNotReady can be returned by a poll function to signal "try again".
// common.ErrorNotFound is treated the same way.
var ErrNotReady = errors.New("result not ready")

// MinDelay replaces non-positive delays.
const MinDelay = 10 * time.Millisecond

// Until calls fn up to attempts times, sleeping delay between calls, until it
// returns a result that is not "not ready". Any other error stops polling
// immediately. Running out of attempts yields common.ErrPollTimeout. A delay
// that is not positive is raised to MinDelay.
func Until[T any](ctx context.Context, attempts int, delay time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	if attempts < 1 {
		attempts = 1
	}
	if delay <= 0 {
		delay = MinDelay
	}

	b := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(delay))

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			if errors.Is(err, ErrNotReady) || errors.Is(err, common.ErrorNotFound) {
				return retry.RetryableError(err)
			}
			return err
		}
		result = v
		return nil
	})

	if err != nil {
		if errors.Is(err, ErrNotReady) || errors.Is(err, common.ErrorNotFound) {
			var zero T
			return zero, fmt.Errorf("%w after %d attempts: %v", common.ErrPollTimeout, attempts, err)
		}
		var zero T
		return zero, err
	}
	return result, nil
}
