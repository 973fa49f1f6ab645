package ledger

import "github.com/shopspring/decimal"

// player is the registry-owned mutable record. Orders only ever grow.
type player struct {
	id           string
	startingCash decimal.Decimal
	orders       []Order
}

// Player is a read-only copy of a registered player's state.
type Player struct {
	ID           string
	StartingCash decimal.Decimal
	// Orders in insertion order, which need not be time order.
	Orders []Order
}

func (p *player) view() Player {
	orders := make([]Order, len(p.orders))
	copy(orders, p.orders)
	return Player{
		ID:           p.id,
		StartingCash: p.startingCash,
		Orders:       orders,
	}
}
