// Package feeder drives synthetic bot traders against the registry so a
// fresh server has activity to show.
package feeder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/papertrade/pkg/ledger"
	"github.com/uhyunpark/papertrade/pkg/market"
	"github.com/uhyunpark/papertrade/pkg/util"
)

// Config controls order generation
type Config struct {
	Bots     int           // Number of simulated players
	Interval time.Duration // Time between orders
	Seed     int64
	Limit    int // Stop after this many orders; 0 runs until cancelled
}

// DefaultConfig returns the demo defaults
func DefaultConfig() Config {
	return Config{
		Bots:     3,
		Interval: 2 * time.Second,
		Seed:     69420,
	}
}

// Sink receives registrations and orders. *ledger.Registry satisfies it.
type Sink interface {
	Register(playerID string) (ledger.Player, error)
	RecordOrder(playerID string, o ledger.Order) (int, error)
}

type Feeder struct {
	cfg   Config
	sink  Sink
	gen   *Generator
	epoch market.Epoch
	clock util.Clock
	log   *zap.SugaredLogger

	total int
}

func New(cfg Config, sink Sink, tickers []string, epoch market.Epoch, clock util.Clock, log *zap.SugaredLogger) (*Feeder, error) {
	if cfg.Bots <= 0 {
		return nil, fmt.Errorf("feeder needs at least one bot, got %d", cfg.Bots)
	}
	if len(tickers) == 0 {
		return nil, errors.New("feeder needs at least one ticker")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("feeder interval must be positive, got %v", cfg.Interval)
	}
	return &Feeder{
		cfg:   cfg,
		sink:  sink,
		gen:   NewGenerator(cfg.Bots, tickers, cfg.Seed),
		epoch: epoch,
		clock: clock,
		log:   log,
	}, nil
}

// RegisterBots creates the bot players. Bots that already exist are reused.
func (f *Feeder) RegisterBots() error {
	for _, bot := range f.gen.Bots() {
		if _, err := f.sink.Register(bot); err != nil && !errors.Is(err, ledger.ErrAlreadyExists) {
			return fmt.Errorf("register %s: %w", bot, err)
		}
	}
	return nil
}

// Step records one random order at the current simulation step.
func (f *Feeder) Step() error {
	t := f.epoch.StepAt(f.clock.Now())
	bot, order := f.gen.Next(t)

	seq, err := f.sink.RecordOrder(bot, order)
	if err != nil {
		return fmt.Errorf("record order for %s: %w", bot, err)
	}
	f.total++

	f.log.Debugw("feeder_order",
		"player_id", bot,
		"seq", seq,
		"symbol", order.Symbol,
		"side", order.Side.String(),
		"quantity", order.Quantity,
		"t", t)
	return nil
}

// Total returns the number of orders recorded so far.
func (f *Feeder) Total() int { return f.total }

// Run registers the bots and records one order per interval until ctx is
// cancelled or the limit is reached.
func (f *Feeder) Run(ctx context.Context) error {
	if err := f.RegisterBots(); err != nil {
		return err
	}

	start := f.clock.Now()
	f.log.Infow("feeder_started", "bots", f.cfg.Bots, "interval", f.cfg.Interval, "seed", f.cfg.Seed)
	defer func() {
		f.log.Infow("feeder_stopped", "orders", f.total, "elapsed", f.clock.Now().Sub(start).Round(time.Second))
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-f.clock.After(f.cfg.Interval):
			if err := f.Step(); err != nil {
				f.log.Warnw("feeder_step_failed", "err", err)
			}
			if f.cfg.Limit > 0 && f.total >= f.cfg.Limit {
				return nil
			}
		}
	}
}

// Start runs the feeder in a background goroutine.
// The returned function stops it and waits for the goroutine to exit.
func Start(ctx context.Context, f *Feeder) context.CancelFunc {
	feedCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := f.Run(feedCtx); err != nil {
			f.log.Errorw("feeder_failed", "err", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
