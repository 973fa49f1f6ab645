package portfolio

import "github.com/shopspring/decimal"

// Cash is the cash line of a snapshot. PricePerShare is always 1.
type Cash struct {
	Amount        decimal.Decimal
	PricePerShare decimal.Decimal
	Value         decimal.Decimal
}

// Holding is one security line of a snapshot. Quantity may be negative (short).
type Holding struct {
	Symbol        string
	Quantity      int64
	PricePerShare decimal.Decimal
	Value         decimal.Decimal
}

// Snapshot is the reconstructed portfolio at one time step.
// Holdings are in first-trade order and keep symbols whose quantity went back to 0.
type Snapshot struct {
	Timestamp int64
	Cash      Cash
	Holdings  []Holding
}

// Holding looks up the line for symbol.
func (s Snapshot) Holding(symbol string) (Holding, bool) {
	for _, h := range s.Holdings {
		if h.Symbol == symbol {
			return h, true
		}
	}
	return Holding{}, false
}

// TotalValue is cash plus the marked value of every holding.
func (s Snapshot) TotalValue() decimal.Decimal {
	total := s.Cash.Value
	for _, h := range s.Holdings {
		total = total.Add(h.Value)
	}
	return total
}
