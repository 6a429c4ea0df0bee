package model

import "github.com/shopspring/decimal"

// DefaultCurrency is used when a request omits the currency code.
const DefaultCurrency = "TRY"

// Money is an immutable amount + ISO currency pair. Amounts are kept
// at 2 decimal places, rounded half away from zero.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// NewMoney creates a Money value rounded to 2 places. An empty
// currency falls back to DefaultCurrency.
func NewMoney(amount decimal.Decimal, currency string) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Amount: amount.Round(2), Currency: currency}
}

// MulInt multiplies the amount by an integer quantity, rounding the
// result to 2 places.
func (m Money) MulInt(qty int) Money {
	return Money{
		Amount:   m.Amount.Mul(decimal.NewFromInt(int64(qty))).Round(2),
		Currency: m.Currency,
	}
}

// Add sums two amounts. Currencies are assumed equal; orders are
// single-currency by construction.
func (m Money) Add(other Money) Money {
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}
}
