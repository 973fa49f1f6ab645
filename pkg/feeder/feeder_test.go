package feeder

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/uhyunpark/papertrade/pkg/ledger"
	"github.com/uhyunpark/papertrade/pkg/market"
	"github.com/uhyunpark/papertrade/pkg/util"
)

var tickers = []string{"AAPL", "MSFT", "GOOGL", "NVDA"}

func TestGenerator_Deterministic(t *testing.T) {
	a := NewGenerator(3, tickers, 7)
	b := NewGenerator(3, tickers, 7)

	for i := 0; i < 100; i++ {
		botA, orderA := a.Next(int64(i))
		botB, orderB := b.Next(int64(i))
		if botA != botB || orderA != orderB {
			t.Fatalf("step %d: %s %+v != %s %+v", i, botA, orderA, botB, orderB)
		}
		if err := orderA.Validate(); err != nil {
			t.Fatalf("generated invalid order: %v", err)
		}
		if orderA.Quantity < 1 || orderA.Quantity > maxQuantity {
			t.Errorf("quantity %d out of range", orderA.Quantity)
		}
		if orderA.Time != int64(i) {
			t.Errorf("time = %d, want %d", orderA.Time, i)
		}
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	reg := ledger.NewRegistry(decimal.NewFromInt(100))
	clock := util.NewManualClock(time.Unix(0, 0))

	tests := []struct {
		name    string
		cfg     Config
		tickers []string
	}{
		{"no bots", Config{Bots: 0, Interval: time.Second}, tickers},
		{"no tickers", Config{Bots: 1, Interval: time.Second}, nil},
		{"zero interval", Config{Bots: 1}, tickers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg, reg, tt.tickers, market.Epoch{}, clock, log); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFeeder_Run(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := util.NewManualClock(start)
	reg := ledger.NewRegistry(decimal.NewFromInt(100000))

	// A bot that already exists is reused.
	if _, err := reg.Register(BotID(2)); err != nil {
		t.Fatal(err)
	}

	cfg := Config{Bots: 3, Interval: 30 * time.Second, Seed: 1, Limit: 20}
	f, err := New(cfg, reg, tickers, market.Epoch{Start: start}, clock, log)
	if err != nil {
		t.Fatal(err)
	}

	if err := f.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if f.Total() != 20 {
		t.Fatalf("total = %d, want 20", f.Total())
	}
	if reg.Count() != 3 {
		t.Errorf("players = %d, want 3", reg.Count())
	}

	recorded := 0
	var lastT int64 = -1
	for i := 1; i <= 3; i++ {
		p, err := reg.Player(BotID(i))
		if err != nil {
			t.Fatalf("bot %d missing: %v", i, err)
		}
		recorded += len(p.Orders)
		for _, o := range p.Orders {
			lastT = max(lastT, o.Time)
		}
	}
	if recorded != 20 {
		t.Errorf("recorded = %d, want 20", recorded)
	}
	// 20 orders, 30s apart: the last one fills at minute 10.
	if lastT != 10 {
		t.Errorf("last order step = %d, want 10", lastT)
	}
}

func TestFeeder_StopsOnCancel(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	reg := ledger.NewRegistry(decimal.NewFromInt(100000))

	cfg := Config{Bots: 1, Interval: time.Millisecond, Seed: 3}
	f, err := New(cfg, reg, tickers, market.Epoch{Start: time.Now()}, util.RealClock{}, log)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("feeder did not stop after cancel")
	}
	if !reg.Exists(BotID(1)) {
		t.Error("bot not registered")
	}
}

func TestStart_CancelWaits(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	reg := ledger.NewRegistry(decimal.NewFromInt(100000))

	cfg := Config{Bots: 2, Interval: time.Millisecond, Seed: 5}
	f, err := New(cfg, reg, tickers, market.Epoch{Start: time.Now()}, util.RealClock{}, log)
	if err != nil {
		t.Fatal(err)
	}

	stop := Start(context.Background(), f)
	time.Sleep(10 * time.Millisecond)
	stop()

	// No more orders after stop returns.
	total := f.Total()
	time.Sleep(10 * time.Millisecond)
	if f.Total() != total {
		t.Errorf("feeder still running after stop: %d -> %d", total, f.Total())
	}
}
