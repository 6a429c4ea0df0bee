package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hilmist/OrderService/internal/model"
	"github.com/hilmist/OrderService/internal/payment"
	"github.com/hilmist/OrderService/pkg/broker"
)

func stockReserved(order *model.Order) model.StockReservedEvent {
	return model.StockReservedEvent{
		OrderID:    order.ID.String(),
		Total:      order.TotalAmount.Amount,
		ReservedAt: time.Now().UTC(),
	}
}

func TestPaymentConsumer_Success(t *testing.T) {
	order := orderWithTotal(300)
	store := newFakeOrderStore(order)
	charger := &fakeCharger{}
	pub := &fakePublisher{}
	c := NewPaymentConsumer(store, charger, pub)

	err := c.HandleStockReserved(context.Background(), delivery(t, stockReserved(order)))
	require.NoError(t, err)

	assert.Equal(t, 1, charger.calls)
	processed := pub.events(broker.PaymentProcessedEvent)
	require.Len(t, processed, 1)
	got := processed[0].(model.PaymentProcessedEvent)
	assert.Equal(t, order.ID.String(), got.OrderID)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(300)))
	assert.Empty(t, pub.events(broker.PaymentFailedEvent))
}

func TestPaymentConsumer_FraudRule(t *testing.T) {
	order := orderWithTotal(10_500)
	store := newFakeOrderStore(order)
	charger := &fakeCharger{}
	pub := &fakePublisher{}
	c := NewPaymentConsumer(store, charger, pub)

	err := c.HandleStockReserved(context.Background(), delivery(t, stockReserved(order)))
	require.NoError(t, err)

	assert.Zero(t, charger.calls, "no charge attempt above the fraud threshold")
	failed := pub.events(broker.PaymentFailedEvent)
	require.Len(t, failed, 1)
	assert.Equal(t, ReasonFraudVerification, failed[0].(model.PaymentFailedEvent).Reason)
}

func TestPaymentConsumer_FraudThresholdIsExclusive(t *testing.T) {
	order := orderWithTotal(10_000)
	store := newFakeOrderStore(order)
	charger := &fakeCharger{}
	pub := &fakePublisher{}
	c := NewPaymentConsumer(store, charger, pub)

	err := c.HandleStockReserved(context.Background(), delivery(t, stockReserved(order)))
	require.NoError(t, err)
	assert.Equal(t, 1, charger.calls, "exactly 10000 is charged, not flagged")
}

func TestPaymentConsumer_TimeoutExhausted(t *testing.T) {
	order := orderWithTotal(300)
	store := newFakeOrderStore(order)
	charger := &fakeCharger{err: payment.ErrTimeout}
	pub := &fakePublisher{}
	c := NewPaymentConsumer(store, charger, pub)

	err := c.HandleStockReserved(context.Background(), delivery(t, stockReserved(order)))
	require.NoError(t, err)

	failed := pub.events(broker.PaymentFailedEvent)
	require.Len(t, failed, 1)
	assert.Equal(t, ReasonProcessorError, failed[0].(model.PaymentFailedEvent).Reason)
}

func TestPaymentConsumer_Declined(t *testing.T) {
	order := orderWithTotal(300)
	store := newFakeOrderStore(order)
	charger := &fakeCharger{err: payment.ErrDeclined}
	pub := &fakePublisher{}
	c := NewPaymentConsumer(store, charger, pub)

	err := c.HandleStockReserved(context.Background(), delivery(t, stockReserved(order)))
	require.NoError(t, err)

	failed := pub.events(broker.PaymentFailedEvent)
	require.Len(t, failed, 1)
	assert.Equal(t, ReasonPaymentDeclined, failed[0].(model.PaymentFailedEvent).Reason)
}

func TestPaymentConsumer_UnknownOrder(t *testing.T) {
	store := newFakeOrderStore()
	pub := &fakePublisher{}
	c := NewPaymentConsumer(store, &fakeCharger{}, pub)

	event := stockReserved(orderWithTotal(300)) // never stored
	err := c.HandleStockReserved(context.Background(), delivery(t, event))

	require.NoError(t, err, "unknown orders are warned and acked")
	assert.Empty(t, pub.published)
}

func TestPaymentConsumer_BadPayload(t *testing.T) {
	c := NewPaymentConsumer(newFakeOrderStore(), &fakeCharger{}, &fakePublisher{})
	err := c.HandleStockReserved(context.Background(), delivery(t, map[string]any{"orderId": "not-a-uuid"}))
	require.Error(t, err)
}
