package inventory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reserve(productID string, qty int, orderID string) ReserveRequest {
	return ReserveRequest{
		ProductID:     productID,
		Quantity:      qty,
		ReservationID: uuid.NewString(),
		OrderID:       orderID,
		TTL:           10 * time.Minute,
	}
}

func TestTryReserve_Success(t *testing.T) {
	e := NewEngine()
	e.SetStock("P1", 100)

	ok := e.TryReserve(reserve("P1", 2, "O1"))
	require.True(t, ok)
	assert.Equal(t, 98, e.GetStock("P1"))
}

func TestTryReserve_InvalidQuantity(t *testing.T) {
	e := NewEngine()
	e.SetStock("P1", 10)

	assert.False(t, e.TryReserve(reserve("P1", 0, "O1")))
	assert.False(t, e.TryReserve(reserve("P1", -1, "O1")))
	assert.Equal(t, 10, e.GetStock("P1"))
}

func TestTryReserve_InsufficientStock(t *testing.T) {
	e := NewEngine()
	e.SetStock("P1", 3)

	// No order id: the 50% rule does not apply, plain availability does.
	ok := e.TryReserve(ReserveRequest{
		ProductID:     "P1",
		Quantity:      4,
		ReservationID: uuid.NewString(),
		TTL:           time.Minute,
	})
	assert.False(t, ok)
	assert.Equal(t, 3, e.GetStock("P1"))
}

func TestTryReserve_UnknownProduct(t *testing.T) {
	e := NewEngine()
	assert.False(t, e.TryReserve(reserve("NOPE", 1, "O1")))
}

func TestTryReserve_HalfRule(t *testing.T) {
	e := NewEngine()
	e.SetStock("P1", 10)

	// 6 > floor(10*0.5) -> rejected, stock unchanged
	assert.False(t, e.TryReserve(reserve("P1", 6, "O1")))
	assert.Equal(t, 10, e.GetStock("P1"))

	// 5 == floor(10*0.5) -> accepted
	assert.True(t, e.TryReserve(reserve("P1", 5, "O2")))
	assert.Equal(t, 5, e.GetStock("P1"))
}

func TestTryReserve_HalfRuleMinimumOne(t *testing.T) {
	e := NewEngine()
	e.SetStock("P1", 1)

	// floor(1*0.5)=0 but the rule floors at 1, so a single unit passes.
	assert.True(t, e.TryReserve(reserve("P1", 1, "O1")))
	assert.Equal(t, 0, e.GetStock("P1"))
}

func TestTryReserve_HalfRuleSkippedWithoutOrder(t *testing.T) {
	e := NewEngine()
	e.SetStock("P1", 10)

	// Admin-style holds without an order id bypass the 50% rule.
	ok := e.TryReserve(ReserveRequest{
		ProductID:     "P1",
		Quantity:      8,
		ReservationID: uuid.NewString(),
		TTL:           time.Minute,
	})
	assert.True(t, ok)
	assert.Equal(t, 2, e.GetStock("P1"))
}

func TestTryReserve_IdempotentRedelivery(t *testing.T) {
	e := NewEngine()
	e.SetStock("P1", 100)

	first := reserve("P1", 2, "O1")
	require.True(t, e.TryReserve(first))
	assert.Equal(t, 98, e.GetStock("P1"))

	// Redelivery of the same (order, product) succeeds with no effect.
	second := reserve("P1", 2, "O1")
	require.True(t, e.TryReserve(second))
	assert.Equal(t, 98, e.GetStock("P1"), "redelivery must not decrement twice")
}

func TestTryReserve_FlashSaleCap(t *testing.T) {
	e := NewEngine()
	e.SetStock("P1", 100)
	e.SetFlashSaleProducts([]string{"P1"})

	r1 := reserve("P1", 2, "O1")
	r1.CustomerID = "C1"
	require.True(t, e.TryReserve(r1))

	// Second reservation would exceed the cumulative cap of 2.
	r2 := reserve("P1", 1, "O2")
	r2.CustomerID = "C1"
	assert.False(t, e.TryReserve(r2))

	// Another customer is unaffected.
	r3 := reserve("P1", 2, "O3")
	r3.CustomerID = "C2"
	assert.True(t, e.TryReserve(r3))

	// Releasing restores the headroom.
	e.Release(r1.ReservationID)
	r4 := reserve("P1", 2, "O4")
	r4.CustomerID = "C1"
	assert.True(t, e.TryReserve(r4))
}

func TestTryReserve_FlashSaleIgnoredWithoutCustomer(t *testing.T) {
	e := NewEngine()
	e.SetStock("P1", 100)
	e.SetFlashSaleProducts([]string{"P1"})

	assert.True(t, e.TryReserve(reserve("P1", 5, "O1")))
}

func TestSetFlashSaleProducts_Replaces(t *testing.T) {
	e := NewEngine()
	e.SetStock("P1", 100)
	e.SetFlashSaleProducts([]string{"P1"})

	r1 := reserve("P1", 2, "O1")
	r1.CustomerID = "C1"
	require.True(t, e.TryReserve(r1))

	// Replace the set; P1 is no longer flash-sale, so the cap is gone.
	e.SetFlashSaleProducts([]string{"P9"})
	r2 := reserve("P1", 5, "O2")
	r2.CustomerID = "C1"
	assert.True(t, e.TryReserve(r2))
}

func TestRelease_RestoresStock(t *testing.T) {
	e := NewEngine()
	e.SetStock("P1", 10)

	req := reserve("P1", 4, "O1")
	require.True(t, e.TryReserve(req))
	require.Equal(t, 6, e.GetStock("P1"))

	e.Release(req.ReservationID)
	assert.Equal(t, 10, e.GetStock("P1"))

	// Idempotent key was erased, so the order may re-reserve.
	assert.True(t, e.TryReserve(reserve("P1", 4, "O1")))
	assert.Equal(t, 6, e.GetStock("P1"))
}

func TestRelease_UnknownIsNoop(t *testing.T) {
	e := NewEngine()
	e.SetStock("P1", 10)
	e.Release("missing")
	assert.Equal(t, 10, e.GetStock("P1"))
}

func TestRelease_Twice(t *testing.T) {
	e := NewEngine()
	e.SetStock("P1", 10)

	req := reserve("P1", 4, "O1")
	require.True(t, e.TryReserve(req))
	e.Release(req.ReservationID)
	e.Release(req.ReservationID)
	assert.Equal(t, 10, e.GetStock("P1"), "double release must not double-credit")
}

func TestReleaseByOrder(t *testing.T) {
	e := NewEngine()
	e.SetStock("P1", 10)
	e.SetStock("P2", 10)

	require.True(t, e.TryReserve(reserve("P1", 2, "O1")))
	require.True(t, e.TryReserve(reserve("P2", 3, "O1")))
	require.True(t, e.TryReserve(reserve("P1", 1, "O2")))

	e.ReleaseByOrder("O1")

	assert.Equal(t, 9, e.GetStock("P1"), "only O2's hold remains")
	assert.Equal(t, 10, e.GetStock("P2"))
}

func TestReleaseExpired(t *testing.T) {
	e := NewEngine()
	e.SetStock("P1", 10)

	expired := ReserveRequest{
		ProductID:     "P1",
		Quantity:      3,
		ReservationID: uuid.NewString(),
		OrderID:       "O1",
		TTL:           -time.Second, // already past deadline
	}
	require.True(t, e.TryReserve(expired))

	live := reserve("P1", 2, "O2")
	require.True(t, e.TryReserve(live))
	require.Equal(t, 5, e.GetStock("P1"))

	released := e.ReleaseExpired()
	assert.Equal(t, 1, released)
	assert.Equal(t, 8, e.GetStock("P1"), "only the expired hold returns")
}

func TestCheckAvailability(t *testing.T) {
	e := NewEngine()
	e.BulkSetStock(map[string]int{"P1": 5, "P2": 0})

	got := e.CheckAvailability([]string{"P1", "P2", "P3"})
	assert.Equal(t, map[string]int{"P1": 5, "P2": 0, "P3": 0}, got)
}

func TestSetStock_ClampsNegative(t *testing.T) {
	e := NewEngine()
	e.SetStock("P1", -5)
	assert.Equal(t, 0, e.GetStock("P1"))
}

// Stock never goes negative under a concurrent mix of reserves and
// releases, and the final balance accounts for every successful hold.
func TestConcurrentReserveRelease_StockNeverNegative(t *testing.T) {
	e := NewEngine()
	const initial = 200
	e.SetStock("P1", initial)

	var (
		wg        sync.WaitGroup
		successMu sync.Mutex
		held      []string
	)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				req := ReserveRequest{
					ProductID:     "P1",
					Quantity:      1 + (j % 3),
					ReservationID: uuid.NewString(),
					OrderID:       fmt.Sprintf("O-%d-%d", n, j),
					TTL:           time.Minute,
				}
				if e.TryReserve(req) {
					if j%2 == 0 {
						e.Release(req.ReservationID)
					} else {
						successMu.Lock()
						held = append(held, req.ReservationID)
						successMu.Unlock()
					}
				}
				if got := e.GetStock("P1"); got < 0 {
					t.Errorf("stock went negative: %d", got)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	for _, id := range held {
		e.Release(id)
	}
	assert.Equal(t, initial, e.GetStock("P1"), "all stock returns after releasing every hold")
}

func TestConcurrentIdempotentRedelivery_SingleDecrement(t *testing.T) {
	e := NewEngine()
	e.SetStock("P1", 100)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.TryReserve(reserve("P1", 2, "O1"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 98, e.GetStock("P1"), "redeliveries of one (order, product) decrement once")
}

// Reservations on distinct products run in independent critical
// sections; a concurrent mix across many products settles to exact
// balances.
func TestConcurrentReserve_AcrossProducts(t *testing.T) {
	e := NewEngine()
	const products = 8
	for i := 0; i < products; i++ {
		e.SetStock(fmt.Sprintf("P%d", i), 100)
	}

	var wg sync.WaitGroup
	for i := 0; i < products; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			productID := fmt.Sprintf("P%d", n)
			for j := 0; j < 25; j++ {
				req := ReserveRequest{
					ProductID:     productID,
					Quantity:      2,
					ReservationID: uuid.NewString(),
					OrderID:       fmt.Sprintf("O-%d-%d", n, j),
					TTL:           time.Minute,
				}
				if e.TryReserve(req) {
					e.Release(req.ReservationID)
				}
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < products; i++ {
		assert.Equal(t, 100, e.GetStock(fmt.Sprintf("P%d", i)))
	}
}
