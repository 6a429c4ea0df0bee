package broker

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Event exchange names. One durable fanout exchange per logical event;
// both services and tests must use the same spelling, so they live in
// one place.
const (
	OrderCreatedEvent     = "order.created"
	StockReservedEvent    = "stock.reserved"
	StockFailedEvent      = "stock.failed"
	StockReleasedEvent    = "stock.released"
	PaymentProcessedEvent = "payment.processed"
	PaymentFailedEvent    = "payment.failed"
	OrderCancelledEvent   = "order.cancelled"
	OrderShippedEvent     = "order.shipped"
	OrderDeliveredEvent   = "order.delivered"
	RefundProcessedEvent  = "refund.processed"
	RefundFailedEvent     = "refund.failed"
)

// Exchanges lists every event exchange declared at startup.
var Exchanges = []string{
	OrderCreatedEvent,
	StockReservedEvent,
	StockFailedEvent,
	StockReleasedEvent,
	PaymentProcessedEvent,
	PaymentFailedEvent,
	OrderCancelledEvent,
	OrderShippedEvent,
	OrderDeliveredEvent,
	RefundProcessedEvent,
	RefundFailedEvent,
}

const (
	// PrefetchCount bounds unacked deliveries per consumer channel.
	PrefetchCount = 10

	// ConfirmTimeout is how long a publisher waits for a broker confirm.
	ConfirmTimeout = 5 * time.Second

	// ReconnectMinBackoff and ReconnectMaxBackoff bound the consumer
	// reconnect loop.
	ReconnectMinBackoff = 2 * time.Second
	ReconnectMaxBackoff = 30 * time.Second
)

// Connect dials RabbitMQ.
func Connect(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// DeclareTopology declares every event exchange. Declarations are
// idempotent; each consumer re-runs this after a reconnect.
func DeclareTopology(ch *amqp.Channel) error {
	for _, exchange := range Exchanges {
		err := ch.ExchangeDeclare(
			exchange,
			"fanout",
			true,  // durable
			false, // auto-deleted
			false, // internal
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", exchange, err)
		}
	}
	return nil
}

// DLXName returns the dead-letter exchange name for a queue.
func DLXName(queue string) string { return queue + ".dlx" }

// DLQName returns the dead-letter queue name for a queue.
func DLQName(queue string) string { return queue + ".dlq" }

// DeclareConsumerQueue declares a durable queue bound to one fanout
// exchange, plus its companion DLX/DLQ pair. Rejected deliveries
// (requeue=false) are routed by the queue's dead-letter arguments to
// <queue>.dlx and land in <queue>.dlq.
func DeclareConsumerQueue(ch *amqp.Channel, queue, exchange string) (amqp.Queue, error) {
	dlx := DLXName(queue)
	dlq := DLQName(queue)

	err := ch.ExchangeDeclare(dlx, "direct", true, false, false, false, nil)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("declare DLX %s: %w", dlx, err)
	}

	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return amqp.Queue{}, fmt.Errorf("declare DLQ %s: %w", dlq, err)
	}
	if err := ch.QueueBind(dlq, queue, dlx, false, nil); err != nil {
		return amqp.Queue{}, fmt.Errorf("bind DLQ %s: %w", dlq, err)
	}

	q, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-dead-letter-exchange":    dlx,
			"x-dead-letter-routing-key": queue,
		},
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	if err := ch.QueueBind(queue, "", exchange, false, nil); err != nil {
		return amqp.Queue{}, fmt.Errorf("bind queue %s to %s: %w", queue, exchange, err)
	}

	return q, nil
}
