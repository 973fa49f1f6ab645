package ledger

import (
	"fmt"
	"strings"
)

// Side is the direction of an order.
type Side uint8

const (
	Buy Side = iota + 1
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// ParseSide accepts "buy" or "sell" in any case.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return 0, fmt.Errorf("%w: side %q (want buy or sell)", ErrInvalidOrder, s)
	}
}

// Order is a trade intent filled at simulated step Time.
// Orders are immutable once recorded.
type Order struct {
	Symbol   string
	Side     Side
	Quantity int64
	Time     int64
}

// Validate checks the structural constraints of an order. It deliberately
// does not look at holdings or cash: short selling and negative balances are allowed.
func (o Order) Validate() error {
	if o.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidOrder)
	}
	if o.Side != Buy && o.Side != Sell {
		return fmt.Errorf("%w: side %d", ErrInvalidOrder, o.Side)
	}
	if o.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidOrder, o.Quantity)
	}
	if o.Time < 0 {
		return fmt.Errorf("%w: time must be non-negative, got %d", ErrInvalidOrder, o.Time)
	}
	return nil
}
