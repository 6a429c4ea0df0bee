package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSource replays a fixed outcome sequence.
type scriptedSource struct {
	outcomes []Outcome
	index    int
}

func (s *scriptedSource) Next() Outcome {
	if s.index >= len(s.outcomes) {
		return OutcomeSuccess
	}
	o := s.outcomes[s.index]
	s.index++
	return o
}

func amount() decimal.Decimal { return decimal.NewFromInt(300) }

func TestProcessor_Charge_Success(t *testing.T) {
	p := NewProcessor(&scriptedSource{outcomes: []Outcome{OutcomeSuccess}})
	err := p.Charge(context.Background(), "O1", amount())
	require.NoError(t, err)
}

func TestProcessor_Charge_TimeoutThenSuccess(t *testing.T) {
	src := &scriptedSource{outcomes: []Outcome{OutcomeTimeout, OutcomeSuccess}}
	p := NewProcessor(src)

	start := time.Now()
	err := p.Charge(context.Background(), "O1", amount())
	require.NoError(t, err)
	assert.Equal(t, 2, src.index, "one retry consumed")
	assert.GreaterOrEqual(t, time.Since(start), 500*time.Millisecond, "first backoff is 500ms")
}

func TestProcessor_Charge_TimeoutsExhausted(t *testing.T) {
	src := &scriptedSource{outcomes: []Outcome{OutcomeTimeout, OutcomeTimeout, OutcomeTimeout}}
	p := NewProcessor(src)

	err := p.Charge(context.Background(), "O1", amount())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, 3, src.index, "exactly three attempts")
}

func TestProcessor_Charge_DeclineIsImmediate(t *testing.T) {
	src := &scriptedSource{outcomes: []Outcome{OutcomeDeclined, OutcomeSuccess}}
	p := NewProcessor(src)

	err := p.Charge(context.Background(), "O1", amount())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeclined))
	assert.Equal(t, 1, src.index, "declines are not retried")
}

func TestProcessor_Charge_ContextCancelled(t *testing.T) {
	src := &scriptedSource{outcomes: []Outcome{OutcomeTimeout, OutcomeTimeout, OutcomeTimeout}}
	p := NewProcessor(src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Charge(ctx, "O1", amount())
	require.Error(t, err)
}

func TestRefundGateway_Success(t *testing.T) {
	g := NewRefundGateway(&scriptedSource{outcomes: []Outcome{OutcomeSuccess}})
	require.NoError(t, g.Refund(context.Background(), "O1", amount()))
}

func TestRefundGateway_RetriesTimeoutAndDecline(t *testing.T) {
	src := &scriptedSource{outcomes: []Outcome{OutcomeTimeout, OutcomeDeclined, OutcomeSuccess}}
	g := NewRefundGateway(src)

	err := g.Refund(context.Background(), "O1", amount())
	require.NoError(t, err, "both timeout and decline are retried on the refund path")
	assert.Equal(t, 3, src.index)
}

func TestRefundGateway_Exhausted(t *testing.T) {
	src := &scriptedSource{outcomes: []Outcome{OutcomeDeclined, OutcomeDeclined, OutcomeDeclined}}
	g := NewRefundGateway(src)

	err := g.Refund(context.Background(), "O1", amount())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeclined))
	assert.Equal(t, 3, src.index)
}

func TestRandomSources_Distribution(t *testing.T) {
	charge := NewChargeSource()
	counts := map[Outcome]int{}
	const n = 20000
	for i := 0; i < n; i++ {
		counts[charge.Next()]++
	}
	assert.InDelta(t, 0.85, float64(counts[OutcomeSuccess])/n, 0.02)
	assert.InDelta(t, 0.10, float64(counts[OutcomeTimeout])/n, 0.02)
	assert.InDelta(t, 0.05, float64(counts[OutcomeDeclined])/n, 0.02)
}
