package google

import (
	"context"

	"github.com/salonlime/booking_bot/internal/model"
	"github.com/sethvargo/go-retry"
)

// withRetry выполняет удалённый вызов с ограниченным числом повторов
// и экспоненциальной паузой. Исчерпание повторов - UpstreamError,
// операция прерывается, частичное состояние не фиксируется.
func withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(retryAttempts, retry.NewExponential(retryBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return &model.UpstreamError{Op: op, Err: err}
	}
	return nil
}
