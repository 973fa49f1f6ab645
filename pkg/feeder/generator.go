package feeder

import (
	"fmt"
	"math/rand"

	"github.com/uhyunpark/papertrade/pkg/ledger"
)

// maxQuantity bounds the size of a generated order.
const maxQuantity = 10

// Generator creates random orders for a fixed set of bot players.
// Not safe for concurrent use.
type Generator struct {
	bots    []string
	tickers []string
	rng     *rand.Rand
}

// BotID names the i-th bot, starting at 1.
func BotID(i int) string {
	return fmt.Sprintf("bot_%d", i)
}

// NewGenerator creates a generator; the same seed yields the same sequence.
func NewGenerator(numBots int, tickers []string, seed int64) *Generator {
	bots := make([]string, numBots)
	for i := range bots {
		bots[i] = BotID(i + 1)
	}
	return &Generator{
		bots:    bots,
		tickers: tickers,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (g *Generator) Bots() []string { return g.bots }

// Next picks a bot and a random buy or sell of 1..10 shares filled at step t.
func (g *Generator) Next(t int64) (string, ledger.Order) {
	bot := g.bots[g.rng.Intn(len(g.bots))]
	symbol := g.tickers[g.rng.Intn(len(g.tickers))]

	side := ledger.Buy
	if g.rng.Intn(2) == 1 {
		side = ledger.Sell
	}

	return bot, ledger.Order{
		Symbol:   symbol,
		Side:     side,
		Quantity: int64(g.rng.Intn(maxQuantity) + 1),
		Time:     t,
	}
}
