package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/papertrade/pkg/ledger"
)

var one = decimal.NewFromInt(1)

type position struct {
	symbol   string
	quantity int64
}

// state is the running cash and holdings of a fold.
type state struct {
	cash      decimal.Decimal
	positions []position // first-trade order
	index     map[string]int
}

func newState(cash decimal.Decimal) *state {
	return &state{cash: cash, index: make(map[string]int)}
}

func (s *state) clone() *state {
	c := &state{
		cash:      s.cash,
		positions: make([]position, len(s.positions)),
		index:     make(map[string]int, len(s.index)),
	}
	copy(c.positions, s.positions)
	for k, v := range s.index {
		c.index[k] = v
	}
	return c
}

// apply fills o at price, creating the symbol's entry at quantity 0 if needed.
func (s *state) apply(o ledger.Order, price decimal.Decimal) {
	i, ok := s.index[o.Symbol]
	if !ok {
		i = len(s.positions)
		s.index[o.Symbol] = i
		s.positions = append(s.positions, position{symbol: o.Symbol})
	}

	notional := price.Mul(decimal.NewFromInt(o.Quantity))
	switch o.Side {
	case ledger.Buy:
		s.positions[i].quantity += o.Quantity
		s.cash = s.cash.Sub(notional)
	case ledger.Sell:
		s.positions[i].quantity -= o.Quantity
		s.cash = s.cash.Add(notional)
	}
}

// snapshot marks every position to market at step t.
func (s *state) snapshot(p Pricer, t int64) Snapshot {
	snap := Snapshot{
		Timestamp: t,
		Cash: Cash{
			Amount:        s.cash,
			PricePerShare: one,
			Value:         s.cash.Mul(one),
		},
		Holdings: make([]Holding, len(s.positions)),
	}
	for i, pos := range s.positions {
		price := p.Price(pos.symbol, t)
		snap.Holdings[i] = Holding{
			Symbol:        pos.symbol,
			Quantity:      pos.quantity,
			PricePerShare: price,
			Value:         price.Mul(decimal.NewFromInt(pos.quantity)),
		}
	}
	return snap
}
