package market

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// MinPrice is the floor applied to every generated price.
var MinPrice = decimal.New(1, -2)

// Price returns the price of ticker at simulated minute t.
//
// The path is basePrice + t*trend + Σ amplitude*sin(frequency*t) + 0.1*cos(0.5*t),
// rounded to cents and floored at MinPrice. Unknown tickers price at zero.
func (c *Catalog) Price(ticker string, t int64) decimal.Decimal {
	i, ok := c.index[ticker]
	if !ok {
		return decimal.Zero
	}
	p := c.params[i]
	x := float64(t)

	price := p.base
	price += x * p.trend
	for k := range p.amps {
		price += p.amps[k] * math.Sin(p.freqs[k]*x)
	}
	price += 0.1 * math.Cos(x*0.5)

	return decimal.Max(MinPrice, roundCents(price))
}

// roundCents rounds on the exact binary value of f, so 1.005 (stored as
// 1.00499...) becomes 1.00 rather than 1.01.
func roundCents(f float64) decimal.Decimal {
	return decimal.RequireFromString(strconv.FormatFloat(f, 'f', 2, 64))
}
