package payment

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
)

// FraudThreshold is the order total above which charges are refused
// outright for manual verification.
var FraudThreshold = decimal.NewFromInt(10_000)

var (
	// ErrTimeout simulates a gateway timeout. Retryable.
	ErrTimeout = errors.New("payment gateway timeout")

	// ErrDeclined simulates a hard decline. Not retried by the charge path.
	ErrDeclined = errors.New("payment declined")
)

// Outcome is the result of a single simulated gateway attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeTimeout
	OutcomeDeclined
)

// OutcomeSource draws attempt outcomes. Production sources draw from
// the configured distribution; tests inject deterministic sequences.
type OutcomeSource interface {
	Next() Outcome
}

// randomSource draws outcomes with fixed success/timeout probabilities;
// the remainder declines.
type randomSource struct {
	success float64
	timeout float64
}

func (s *randomSource) Next() Outcome {
	r := rand.Float64()
	switch {
	case r < s.success:
		return OutcomeSuccess
	case r < s.success+s.timeout:
		return OutcomeTimeout
	default:
		return OutcomeDeclined
	}
}

// NewChargeSource returns the charge distribution: 85% success,
// 10% timeout, 5% decline.
func NewChargeSource() OutcomeSource {
	return &randomSource{success: 0.85, timeout: 0.10}
}

// Charge attempt policy.
const (
	chargeBaseBackoff = 500 * time.Millisecond
	chargeBackoffCap  = 4 * time.Second
	chargeMaxRetries  = 2 // 3 attempts total
)

// Processor simulates the payment gateway. Timeouts are retried with
// exponential backoff (500ms, 1s, 2s, capped at 4s) for up to three
// attempts; declines fail immediately.
type Processor struct {
	source OutcomeSource
}

// NewProcessor creates a processor drawing from the given source.
func NewProcessor(source OutcomeSource) *Processor {
	return &Processor{source: source}
}

// Charge runs one payment. Returns nil on success, ErrTimeout after
// exhausted retries, or ErrDeclined on a hard decline.
func (p *Processor) Charge(ctx context.Context, orderID string, amount decimal.Decimal) error {
	backoff := retry.WithCappedDuration(chargeBackoffCap, retry.NewExponential(chargeBaseBackoff))
	backoff = retry.WithMaxRetries(chargeMaxRetries, backoff)

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		switch p.source.Next() {
		case OutcomeSuccess:
			return nil
		case OutcomeTimeout:
			log.Warn().
				Str("order_id", orderID).
				Int("attempt", attempt).
				Msg("payment attempt timed out, retrying")
			return retry.RetryableError(ErrTimeout)
		default:
			return ErrDeclined
		}
	})
}
