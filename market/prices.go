package market

import "time"

// Simulation is the market a portfolio trades against: a clock that drives
// ticks and a price store that values assets.
type Simulation struct {
	*Clock
	*PriceStore
}

func NewSimulation(start time.Time, quote Instrument) *Simulation {
	return &Simulation{
		Clock:      NewClock(start),
		PriceStore: NewPriceStore(quote),
	}
}

// Now returns the clock's current time.
func (s *Simulation) Now() time.Time { return s.Clock.Now() }

// Benchmark returns the instrument assets are valued in.
func (s *Simulation) Benchmark() Instrument { return s.QuoteInstrument() }
