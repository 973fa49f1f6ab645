package portfolio

import (
	"math/rand"
	"testing"

	"github.com/uhyunpark/papertrade/pkg/ledger"
)

func newTestEngine(t *testing.T, cacheSize int) *Engine {
	t.Helper()
	e, err := NewEngine(catalog, DefaultLookback, cacheSize)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func player(id string, orders ...ledger.Order) ledger.Player {
	return ledger.Player{ID: id, StartingCash: startingCash, Orders: orders}
}

func TestEngine_MatchesReference(t *testing.T) {
	e := newTestEngine(t, 16)
	p := player("E", buy("AAPL", 10, 10), sell("NVDA", 3, 75), buy("GOOGL", 2, 130))

	for _, tNow := range []int64{10, 61, 62, 100, 130, 131, 400} {
		got, err := e.Replay(p, tNow)
		if err != nil {
			t.Fatalf("Replay(%d): %v", tNow, err)
		}
		if want := mustReplay(t, p.Orders, tNow); !equalSnapshots(got, want) {
			t.Fatalf("tNow=%d: engine output differs from reference fold", tNow)
		}
	}

	stats := e.Stats()
	if stats.Hits == 0 {
		t.Errorf("advancing queries should resume from checkpoints, stats = %+v", stats)
	}
	if e.Checkpoints() != 1 {
		t.Errorf("checkpoints = %d, want 1", e.Checkpoints())
	}
}

func TestEngine_InvalidatedByBackdatedOrder(t *testing.T) {
	e := newTestEngine(t, 16)
	p := player("B", buy("AAPL", 1, 5))

	if _, err := e.Replay(p, 200); err != nil {
		t.Fatal(err)
	}

	// Backdated order lands before the checkpoint at step 139.
	p.Orders = append(p.Orders, buy("MSFT", 4, 20))
	got, err := e.Replay(p, 210)
	if err != nil {
		t.Fatal(err)
	}
	if want := mustReplay(t, p.Orders, 210); !equalSnapshots(got, want) {
		t.Fatalf("stale checkpoint used after backdated order")
	}
	if _, ok := got[len(got)-1].Holding("MSFT"); !ok {
		t.Errorf("backdated MSFT order missing")
	}
	if e.Stats().Hits != 0 {
		t.Errorf("invalid checkpoint counted as a hit: %+v", e.Stats())
	}
}

func TestEngine_QueryBackInTime(t *testing.T) {
	e := newTestEngine(t, 16)
	p := player("Q", buy("AAPL", 1, 5), sell("AAPL", 1, 150))

	for _, tNow := range []int64{300, 100, 160, 70} {
		got, err := e.Replay(p, tNow)
		if err != nil {
			t.Fatal(err)
		}
		if want := mustReplay(t, p.Orders, tNow); !equalSnapshots(got, want) {
			t.Fatalf("tNow=%d: mismatch after moving back in time", tNow)
		}
	}
}

func TestEngine_CacheDisabled(t *testing.T) {
	e := newTestEngine(t, 0)
	p := player("N", buy("NVDA", 2, 90))

	got, err := e.Replay(p, 150)
	if err != nil {
		t.Fatal(err)
	}
	if want := mustReplay(t, p.Orders, 150); !equalSnapshots(got, want) {
		t.Fatalf("mismatch with cache disabled")
	}
	if e.Checkpoints() != 0 {
		t.Errorf("checkpoints = %d, want 0", e.Checkpoints())
	}

	far, err := e.Replay(p, 1_000_000_000_000_000)
	if err != nil {
		t.Fatal(err)
	}
	if len(far) != int(DefaultLookback)+1 {
		t.Errorf("far query returned %d snapshots", len(far))
	}
}

func TestEngine_NegativeTime(t *testing.T) {
	e := newTestEngine(t, 4)
	if _, err := e.Replay(player("X"), -5); err != ErrInvalidTime {
		t.Errorf("err = %v, want ErrInvalidTime", err)
	}
}

func TestNewEngine_NegativeLookback(t *testing.T) {
	if _, err := NewEngine(catalog, -1, 4); err == nil {
		t.Errorf("expected error for negative lookback")
	}
}

// TestEngine_RandomizedSession interleaves appends (including backdated ones)
// with queries at mostly increasing times and checks every answer against
// the reference fold.
func TestEngine_RandomizedSession(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	symbols := append(catalog.Tickers(), "ZZZZ")
	e := newTestEngine(t, 2)

	players := []ledger.Player{player("p1"), player("p2"), player("p3")}
	now := int64(0)

	for step := 0; step < 300; step++ {
		i := rng.Intn(len(players))
		switch rng.Intn(3) {
		case 0:
			at := now + int64(rng.Intn(10))
			if rng.Intn(5) == 0 {
				at = int64(rng.Intn(int(now) + 1))
			}
			players[i].Orders = append(players[i].Orders, ledger.Order{
				Symbol:   symbols[rng.Intn(len(symbols))],
				Side:     ledger.Side(rng.Intn(2) + 1),
				Quantity: int64(rng.Intn(50) + 1),
				Time:     at,
			})
		default:
			now += int64(rng.Intn(15))
			tNow := now
			if rng.Intn(10) == 0 {
				tNow = int64(rng.Intn(int(now) + 1))
			}
			got, err := e.Replay(players[i], tNow)
			if err != nil {
				t.Fatal(err)
			}
			if want := mustReplay(t, players[i].Orders, tNow); !equalSnapshots(got, want) {
				t.Fatalf("step %d: %s at tNow=%d differs from reference", step, players[i].ID, tNow)
			}
		}
	}
}
