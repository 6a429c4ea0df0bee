package inventory

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// FlashSaleCustomerCap is the maximum cumulative reserved quantity a
	// single customer may hold for a flash-sale product.
	FlashSaleCustomerCap = 2

	// LowStockThreshold triggers the low-stock signal after a commit.
	LowStockThreshold = 10
)

// Reservation is a transient hold on stock.
type Reservation struct {
	ID         string
	OrderID    string
	ProductID  string
	Quantity   int
	CustomerID string
	ExpiresAt  time.Time
}

// ReserveRequest carries the inputs of a single-product reservation.
type ReserveRequest struct {
	ProductID     string
	Quantity      int
	ReservationID string
	CustomerID    string
	OrderID       string
	TTL           time.Duration
}

// productState holds everything the reservation algorithm touches for
// one product, guarded by the state's own mutex. Reservations on
// different products never contend.
type productState struct {
	mu           sync.Mutex
	stock        int
	reservations map[string]*Reservation // reservation id -> hold
	ledger       map[string]int          // customer id -> reserved qty
	idem         map[string]struct{}     // order ids already reserved
}

// Engine is the in-memory reservation store. State is sharded per
// product; the registry lock is held only to look up or create a
// shard, never across a reserve or release. The cross-product indexes
// and the flash-sale set keep their own narrow locks.
type Engine struct {
	mu       sync.Mutex // shard lookup/insertion only
	products map[string]*productState

	idxMu   sync.Mutex
	byOrder map[string][]string // order id -> reservation ids
	byRes   map[string]string   // reservation id -> product id

	flashMu   sync.RWMutex
	flashSale map[string]struct{}
}

// NewEngine creates an empty reservation engine.
func NewEngine() *Engine {
	return &Engine{
		products:  make(map[string]*productState),
		byOrder:   make(map[string][]string),
		byRes:     make(map[string]string),
		flashSale: make(map[string]struct{}),
	}
}

// product returns the shard for a product, creating it on first use.
// Shards are never deleted.
func (e *Engine) product(productID string) *productState {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.products[productID]
	if !ok {
		p = &productState{
			reservations: make(map[string]*Reservation),
			ledger:       make(map[string]int),
			idem:         make(map[string]struct{}),
		}
		e.products[productID] = p
	}
	return p
}

// lookup returns the shard without creating it.
func (e *Engine) lookup(productID string) *productState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.products[productID]
}

func (e *Engine) isFlashSale(productID string) bool {
	e.flashMu.RLock()
	defer e.flashMu.RUnlock()
	_, ok := e.flashSale[productID]
	return ok
}

// TryReserve atomically checks policy, decrements stock and records
// the reservation. Every policy violation returns false; TryReserve
// never fails any other way.
func (e *Engine) TryReserve(req ReserveRequest) bool {
	if req.Quantity <= 0 || req.ProductID == "" {
		return false
	}

	p := e.product(req.ProductID)
	p.mu.Lock()
	defer p.mu.Unlock()

	// At-least-once redelivery: a (order, product) pair already reserved
	// succeeds with no side effect.
	if req.OrderID != "" {
		if _, ok := p.idem[req.OrderID]; ok {
			return true
		}
	}

	available := p.stock

	// A single order may not take more than half of the available stock,
	// floored, minimum 1.
	if req.OrderID != "" {
		maxAllowed := available / 2
		if maxAllowed < 1 {
			maxAllowed = 1
		}
		if req.Quantity > maxAllowed {
			return false
		}
	}

	// Flash-sale cap: cumulative reserved quantity per customer.
	isFlash := e.isFlashSale(req.ProductID)
	if isFlash && req.CustomerID != "" {
		if p.ledger[req.CustomerID]+req.Quantity > FlashSaleCustomerCap {
			return false
		}
	}

	if available < req.Quantity {
		return false
	}

	// Commit.
	p.stock = available - req.Quantity
	p.reservations[req.ReservationID] = &Reservation{
		ID:         req.ReservationID,
		OrderID:    req.OrderID,
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		CustomerID: req.CustomerID,
		ExpiresAt:  time.Now().Add(req.TTL),
	}
	if req.OrderID != "" {
		p.idem[req.OrderID] = struct{}{}
	}
	if isFlash && req.CustomerID != "" {
		p.ledger[req.CustomerID] += req.Quantity
	}

	e.idxMu.Lock()
	e.byRes[req.ReservationID] = req.ProductID
	if req.OrderID != "" {
		e.byOrder[req.OrderID] = append(e.byOrder[req.OrderID], req.ReservationID)
	}
	e.idxMu.Unlock()

	if p.stock < LowStockThreshold {
		log.Warn().
			Str("product_id", req.ProductID).
			Int("stock", p.stock).
			Msg("low stock")
	}

	return true
}

// Release returns a reservation's stock. It is a no-op when the
// reservation id is unknown.
func (e *Engine) Release(reservationID string) {
	e.idxMu.Lock()
	productID, ok := e.byRes[reservationID]
	e.idxMu.Unlock()
	if !ok {
		return
	}

	p := e.lookup(productID)
	if p == nil {
		return
	}

	p.mu.Lock()
	res, ok := p.reservations[reservationID]
	if !ok {
		p.mu.Unlock()
		return
	}

	p.stock += res.Quantity
	delete(p.reservations, reservationID)

	if res.CustomerID != "" {
		if have, ok := p.ledger[res.CustomerID]; ok {
			have -= res.Quantity
			if have <= 0 {
				delete(p.ledger, res.CustomerID)
			} else {
				p.ledger[res.CustomerID] = have
			}
		}
	}
	if res.OrderID != "" {
		// Erase the idempotent key so a future retry may re-reserve.
		delete(p.idem, res.OrderID)
	}
	p.mu.Unlock()

	e.idxMu.Lock()
	delete(e.byRes, reservationID)
	if res.OrderID != "" {
		ids := e.byOrder[res.OrderID]
		for i, id := range ids {
			if id == reservationID {
				e.byOrder[res.OrderID] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
		if len(e.byOrder[res.OrderID]) == 0 {
			delete(e.byOrder, res.OrderID)
		}
	}
	e.idxMu.Unlock()
}

// ReleaseByOrder releases every reservation associated with an order.
func (e *Engine) ReleaseByOrder(orderID string) {
	e.idxMu.Lock()
	ids := append([]string(nil), e.byOrder[orderID]...)
	e.idxMu.Unlock()

	for _, id := range ids {
		e.Release(id)
	}
}

// ReleaseExpired sweeps every shard and releases every reservation
// whose deadline has passed. Returns the number released.
func (e *Engine) ReleaseExpired() int {
	now := time.Now()

	e.mu.Lock()
	shards := make([]*productState, 0, len(e.products))
	for _, p := range e.products {
		shards = append(shards, p)
	}
	e.mu.Unlock()

	expired := make([]string, 0)
	for _, p := range shards {
		p.mu.Lock()
		for id, res := range p.reservations {
			if !res.ExpiresAt.After(now) {
				expired = append(expired, id)
			}
		}
		p.mu.Unlock()
	}

	for _, id := range expired {
		e.Release(id)
	}
	if len(expired) > 0 {
		log.Info().Int("count", len(expired)).Msg("released expired reservations")
	}
	return len(expired)
}

// CheckAvailability returns the available quantity per requested
// product. Unknown products report 0.
func (e *Engine) CheckAvailability(productIDs []string) map[string]int {
	out := make(map[string]int, len(productIDs))
	for _, id := range productIDs {
		out[id] = e.GetStock(id)
	}
	return out
}

// GetStock returns the available quantity of one product.
func (e *Engine) GetStock(productID string) int {
	p := e.lookup(productID)
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stock
}

// SetStock sets the available quantity of one product. Admin path.
func (e *Engine) SetStock(productID string, qty int) {
	if qty < 0 {
		qty = 0
	}
	p := e.product(productID)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stock = qty
}

// BulkSetStock sets multiple products. Each product is updated in its
// own critical section; the bulk call is not atomic across products.
func (e *Engine) BulkSetStock(stock map[string]int) {
	for productID, qty := range stock {
		e.SetStock(productID, qty)
	}
}

// SetFlashSaleProducts atomically replaces the flash-sale set.
func (e *Engine) SetFlashSaleProducts(productIDs []string) {
	next := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		next[id] = struct{}{}
	}

	e.flashMu.Lock()
	defer e.flashMu.Unlock()
	e.flashSale = next
}
