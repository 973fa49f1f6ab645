package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one sample of a ticker's price path.
type PricePoint struct {
	Ticker    string
	Price     decimal.Decimal
	Step      int64
	Timestamp time.Time
}

// Epoch maps integer simulation steps (minutes) to wall-clock time.
type Epoch struct {
	Start time.Time
}

// StepDuration is the wall-clock length of one simulation step.
const StepDuration = time.Minute

func (e Epoch) TimeOf(t int64) time.Time {
	return e.Start.Add(time.Duration(t) * StepDuration)
}

// StepAt returns the step containing now; instants before Start map to 0.
func (e Epoch) StepAt(now time.Time) int64 {
	if now.Before(e.Start) {
		return 0
	}
	return int64(now.Sub(e.Start) / StepDuration)
}

// History returns the last lookback prices of ticker ending at tEnd,
// oldest first. The window never starts before step 0.
func (c *Catalog) History(ticker string, tEnd, lookback int64, epoch Epoch) []PricePoint {
	if tEnd < 0 || lookback <= 0 {
		return nil
	}
	start := max(0, tEnd-lookback+1)

	history := make([]PricePoint, 0, tEnd-start+1)
	for t := start; t <= tEnd; t++ {
		history = append(history, PricePoint{
			Ticker:    ticker,
			Price:     c.Price(ticker, t),
			Step:      t,
			Timestamp: epoch.TimeOf(t),
		})
	}
	return history
}

// AllHistory concatenates History for every ticker in catalog order.
func (c *Catalog) AllHistory(tEnd, lookback int64, epoch Epoch) []PricePoint {
	var all []PricePoint
	for _, p := range c.profiles {
		all = append(all, c.History(p.Ticker, tEnd, lookback, epoch)...)
	}
	return all
}
