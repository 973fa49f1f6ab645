package portfolio

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/uhyunpark/papertrade/pkg/ledger"
)

// checkpoint is the running state after every order with Time <= at, built
// from the first logLen orders of the player's log. Never mutated once cached.
type checkpoint struct {
	at     int64
	logLen int
	state  *state
}

// reusable reports whether cp still describes orders with Time <= cp.at.
// The log is append-only, so only orders added since logLen need checking.
func (cp *checkpoint) reusable(orders []ledger.Order) bool {
	if len(orders) < cp.logLen {
		return false
	}
	for _, o := range orders[cp.logLen:] {
		if o.Time <= cp.at {
			return false
		}
	}
	return true
}

// Stats counts how replays were served.
type Stats struct {
	Hits   uint64 // resumed from a checkpoint
	Misses uint64 // folded from step 0
}

// Engine replays portfolios and keeps one checkpoint per player at the step
// before the last queried window. Output is identical to Replay.
type Engine struct {
	pricer   Pricer
	lookback int64
	cache    *lru.Cache[string, *checkpoint] // nil: checkpointing disabled

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewEngine creates a replay engine. cacheSize is the number of players whose
// checkpoint is retained; 0 disables checkpointing.
func NewEngine(p Pricer, lookback int64, cacheSize int) (*Engine, error) {
	if lookback < 0 {
		return nil, fmt.Errorf("lookback must be non-negative: %d", lookback)
	}
	e := &Engine{pricer: p, lookback: lookback}
	if cacheSize > 0 {
		cache, err := lru.New[string, *checkpoint](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create checkpoint cache: %w", err)
		}
		e.cache = cache
	}
	return e, nil
}

func (e *Engine) Lookback() int64 { return e.lookback }

// Replay returns the snapshots of player for the window ending at tNow.
func (e *Engine) Replay(player ledger.Player, tNow int64) ([]Snapshot, error) {
	if tNow < 0 {
		return nil, ErrInvalidTime
	}

	start := WindowStart(tNow, e.lookback)
	if e.cache == nil || start == 0 {
		e.misses.Add(1)
		return Replay(e.pricer, player.StartingCash, player.Orders, tNow, e.lookback)
	}

	sorted := sortedUpTo(player.Orders, tNow)
	at := start - 1

	st := newState(player.StartingCash)
	from := int64(0)
	if cp, ok := e.cache.Get(player.ID); ok && cp.at <= at && cp.reusable(player.Orders) {
		st = cp.state.clone()
		from = cp.at + 1
		e.hits.Add(1)
	} else {
		e.misses.Add(1)
	}

	advance(e.pricer, st, between(sorted, from, at), from, at)
	e.cache.Add(player.ID, &checkpoint{at: at, logLen: len(player.Orders), state: st.clone()})

	return walk(e.pricer, st, between(sorted, start, tNow), start, start, tNow), nil
}

// Stats returns the hit/miss counters since creation.
func (e *Engine) Stats() Stats {
	return Stats{Hits: e.hits.Load(), Misses: e.misses.Load()}
}

// Checkpoints returns the number of cached checkpoints.
func (e *Engine) Checkpoints() int {
	if e.cache == nil {
		return 0
	}
	return e.cache.Len()
}
