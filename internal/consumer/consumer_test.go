package consumer

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hilmist/OrderService/internal/model"
)

// fakePublisher records published events in order.
type fakePublisher struct {
	mu        sync.Mutex
	published []publishedEvent
	err       error
}

type publishedEvent struct {
	exchange string
	body     any
}

func (p *fakePublisher) Publish(ctx context.Context, exchange string, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, publishedEvent{exchange: exchange, body: body})
	return nil
}

func (p *fakePublisher) events(exchange string) []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []any
	for _, e := range p.published {
		if e.exchange == exchange {
			out = append(out, e.body)
		}
	}
	return out
}

// fakeOrderStore keeps aggregates in memory.
type fakeOrderStore struct {
	mu      sync.Mutex
	orders  map[uuid.UUID]*model.Order
	getErr  error
	saveErr error
	saves   int
}

func newFakeOrderStore(orders ...*model.Order) *fakeOrderStore {
	s := &fakeOrderStore{orders: make(map[uuid.UUID]*model.Order)}
	for _, o := range orders {
		s.orders[o.ID] = o
	}
	return s
}

func (s *fakeOrderStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.orders[id], nil
}

func (s *fakeOrderStore) Save(ctx context.Context, order *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.orders[order.ID] = order
	return nil
}

// fakeCharger and fakeRefunder force gateway outcomes.
type fakeCharger struct {
	err   error
	calls int
}

func (c *fakeCharger) Charge(ctx context.Context, orderID string, amount decimal.Decimal) error {
	c.calls++
	return c.err
}

type fakeRefunder struct {
	err   error
	calls int
}

func (r *fakeRefunder) Refund(ctx context.Context, orderID string, amount decimal.Decimal) error {
	r.calls++
	return r.err
}

func orderWithTotal(total int64) *model.Order {
	order, err := model.NewOrder("customer-a", []model.ItemInput{
		{ProductID: "P1", Quantity: 1, UnitPrice: decimal.NewFromInt(total)},
	})
	if err != nil {
		panic(err)
	}
	return order
}
