package payment

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
)

// NewRefundSource returns the refund distribution: 95% success,
// 3% timeout, 2% decline.
func NewRefundSource() OutcomeSource {
	return &randomSource{success: 0.95, timeout: 0.03}
}

// Refund attempt policy.
const (
	refundBaseBackoff = 200 * time.Millisecond
	refundJitter      = 100 * time.Millisecond
	refundMaxRetries  = 2 // 3 attempts total
)

// refundBackoff yields 200ms * 2^(n-1) plus 0..100ms of jitter.
func refundBackoff() retry.Backoff {
	next := refundBaseBackoff
	var b retry.BackoffFunc = func() (time.Duration, bool) {
		d := next + time.Duration(rand.Int63n(int64(refundJitter)))
		next *= 2
		return d, false
	}
	return retry.WithMaxRetries(refundMaxRetries, b)
}

// RefundGateway simulates the refund API. Both timeouts and declines
// are retried; after three exhausted attempts the last error is
// returned for the refund.failed emission.
type RefundGateway struct {
	source OutcomeSource
}

// NewRefundGateway creates a gateway drawing from the given source.
func NewRefundGateway(source OutcomeSource) *RefundGateway {
	return &RefundGateway{source: source}
}

// Refund runs one refund. Returns nil on success, or the final
// ErrTimeout/ErrDeclined after retries are exhausted.
func (g *RefundGateway) Refund(ctx context.Context, orderID string, amount decimal.Decimal) error {
	attempt := 0
	return retry.Do(ctx, refundBackoff(), func(ctx context.Context) error {
		attempt++
		switch g.source.Next() {
		case OutcomeSuccess:
			return nil
		case OutcomeTimeout:
			log.Warn().
				Str("order_id", orderID).
				Int("attempt", attempt).
				Msg("refund attempt timed out, retrying")
			return retry.RetryableError(ErrTimeout)
		default:
			log.Warn().
				Str("order_id", orderID).
				Int("attempt", attempt).
				Msg("refund attempt declined, retrying")
			return retry.RetryableError(ErrDeclined)
		}
	})
}
