// Package portfolio reconstructs a player's portfolio at any simulated step
// by replaying the order log against the price function.
package portfolio

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/papertrade/pkg/ledger"
)

// DefaultLookback is the number of steps before tNow covered by a replay.
const DefaultLookback int64 = 60

var ErrInvalidTime = errors.New("query time must be non-negative")

// Pricer prices a symbol at a simulated step. *market.Catalog implements it.
type Pricer interface {
	Price(symbol string, t int64) decimal.Decimal
}

// WindowStart is the first timestamp returned for a query at tNow.
func WindowStart(tNow, lookback int64) int64 {
	return max(0, tNow-lookback)
}

// sortedUpTo returns the orders with Time <= tNow, stably sorted by Time so
// equal-time orders keep insertion order.
func sortedUpTo(orders []ledger.Order, tNow int64) []ledger.Order {
	out := make([]ledger.Order, 0, len(orders))
	for _, o := range orders {
		if o.Time <= tNow {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// Replay is the reference fold: it applies every order filled before the
// window, then walks the window [max(0, tNow-lookback), tNow] step by step,
// snapshotting each step. The result has min(tNow, lookback)+1 entries and
// its cost does not depend on the size of tNow.
func Replay(p Pricer, startingCash decimal.Decimal, orders []ledger.Order, tNow, lookback int64) ([]Snapshot, error) {
	if tNow < 0 {
		return nil, ErrInvalidTime
	}
	sorted := sortedUpTo(orders, tNow)
	start := WindowStart(tNow, lookback)

	st := newState(startingCash)
	advance(p, st, sorted, 0, start-1)
	return walk(p, st, between(sorted, start, tNow), start, start, tNow), nil
}

// walk advances st through steps [from, tNow]. sorted must hold only orders
// with from <= Time <= tNow. Snapshots are taken for t >= start.
func walk(p Pricer, st *state, sorted []ledger.Order, from, start, tNow int64) []Snapshot {
	snapshots := make([]Snapshot, 0, tNow-max(from, start)+1)
	next := 0
	for t := from; t <= tNow; t++ {
		for next < len(sorted) && sorted[next].Time == t {
			o := sorted[next]
			st.apply(o, p.Price(o.Symbol, t))
			next++
		}
		if t >= start {
			snapshots = append(snapshots, st.snapshot(p, t))
		}
	}
	return snapshots
}

// advance applies the orders with from <= Time <= to without materializing
// snapshots. The price of an order only depends on its own step, so steps
// without orders are skipped.
func advance(p Pricer, st *state, sorted []ledger.Order, from, to int64) {
	for _, o := range sorted {
		if o.Time < from {
			continue
		}
		if o.Time > to {
			return
		}
		st.apply(o, p.Price(o.Symbol, o.Time))
	}
}

// between returns the slice of sorted whose Time lies in [from, to].
func between(sorted []ledger.Order, from, to int64) []ledger.Order {
	lo := sort.Search(len(sorted), func(i int) bool { return sorted[i].Time >= from })
	hi := sort.Search(len(sorted), func(i int) bool { return sorted[i].Time > to })
	return sorted[lo:hi]
}
