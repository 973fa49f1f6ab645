// Package market holds the static security catalog and the deterministic
// price function every other component prices against.
package market

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Wave is one sinusoidal component of a security's price path.
type Wave struct {
	Amplitude decimal.Decimal
	Frequency decimal.Decimal
}

// SecurityProfile holds the simulation parameters for one ticker.
type SecurityProfile struct {
	Ticker    string
	BasePrice decimal.Decimal
	Trend     decimal.Decimal // drift per time step
	Waves     []Wave
}

// compiled is the float form of a profile used by Price.
type compiled struct {
	base  float64
	trend float64
	amps  []float64
	freqs []float64
}

func compile(p SecurityProfile) compiled {
	c := compiled{
		base:  p.BasePrice.InexactFloat64(),
		trend: p.Trend.InexactFloat64(),
		amps:  make([]float64, len(p.Waves)),
		freqs: make([]float64, len(p.Waves)),
	}
	for i, w := range p.Waves {
		c.amps[i] = w.Amplitude.InexactFloat64()
		c.freqs[i] = w.Frequency.InexactFloat64()
	}
	return c
}

// Catalog is an immutable, ordered set of security profiles.
// Safe for concurrent use: nothing is mutated after NewCatalog returns.
type Catalog struct {
	profiles []SecurityProfile
	index    map[string]int
	params   []compiled
}

// NewCatalog builds a catalog preserving the order of profiles.
// Returns error on an empty or duplicate ticker.
func NewCatalog(profiles ...SecurityProfile) (*Catalog, error) {
	c := &Catalog{
		profiles: make([]SecurityProfile, 0, len(profiles)),
		index:    make(map[string]int, len(profiles)),
		params:   make([]compiled, 0, len(profiles)),
	}

	for _, p := range profiles {
		if p.Ticker == "" {
			return nil, fmt.Errorf("security profile with empty ticker")
		}
		if _, exists := c.index[p.Ticker]; exists {
			return nil, fmt.Errorf("security %s already in catalog", p.Ticker)
		}

		p.Waves = append([]Wave(nil), p.Waves...)
		c.index[p.Ticker] = len(c.profiles)
		c.profiles = append(c.profiles, p)
		c.params = append(c.params, compile(p))
	}

	return c, nil
}

func wave(amplitude, frequency string) Wave {
	return Wave{
		Amplitude: decimal.RequireFromString(amplitude),
		Frequency: decimal.RequireFromString(frequency),
	}
}

// DefaultProfiles returns the four stock "personalities" the game ships with.
func DefaultProfiles() []SecurityProfile {
	return []SecurityProfile{
		{
			Ticker:    "AAPL",
			BasePrice: decimal.RequireFromString("270.37"),
			Trend:     decimal.RequireFromString("0.0005"),
			Waves:     []Wave{wave("2", "0.05"), wave("0.2", "0.3"), wave("0.1", "0.9")},
		},
		{
			Ticker:    "MSFT",
			BasePrice: decimal.RequireFromString("517.81"),
			Trend:     decimal.RequireFromString("0.0008"),
			Waves:     []Wave{wave("2.0", "0.03"), wave("0.7", "0.25"), wave("0.2", "1.1")},
		},
		{
			Ticker:    "GOOGL",
			BasePrice: decimal.RequireFromString("281.82"),
			Trend:     decimal.RequireFromString("0.0006"),
			Waves:     []Wave{wave("1.2", "0.04"), wave("0.5", "0.35"), wave("0.15", "0.8")},
		},
		{
			Ticker:    "NVDA",
			BasePrice: decimal.RequireFromString("202.49"),
			Trend:     decimal.RequireFromString("0.0012"),
			Waves:     []Wave{wave("2.5", "0.06"), wave("1.0", "0.4"), wave("0.3", "1.2")},
		},
	}
}

// DefaultCatalog returns the catalog built from DefaultProfiles.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultProfiles()...)
	if err != nil {
		panic(err)
	}
	return c
}

// Profile retrieves a security by ticker.
func (c *Catalog) Profile(ticker string) (SecurityProfile, bool) {
	i, ok := c.index[ticker]
	if !ok {
		return SecurityProfile{}, false
	}
	return c.profiles[i], true
}

// Profiles returns all securities in catalog order.
func (c *Catalog) Profiles() []SecurityProfile {
	out := make([]SecurityProfile, len(c.profiles))
	copy(out, c.profiles)
	return out
}

// Tickers returns the ticker symbols in catalog order.
func (c *Catalog) Tickers() []string {
	out := make([]string, len(c.profiles))
	for i, p := range c.profiles {
		out[i] = p.Ticker
	}
	return out
}

// Has reports whether ticker is priced by this catalog.
func (c *Catalog) Has(ticker string) bool {
	_, ok := c.index[ticker]
	return ok
}

func (c *Catalog) Count() int { return len(c.profiles) }
