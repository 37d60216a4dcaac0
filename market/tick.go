package market

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the price of one unit of an instrument, in units of the quote
// instrument, observed at Time.
type Quote struct {
	Instrument Instrument
	Price      decimal.Decimal
	Time       time.Time
}

// PriceStore keeps an append-only price history per instrument and values
// assets against a single quote (benchmark) instrument.
type PriceStore struct {
	mu     sync.RWMutex
	quote  Instrument
	quotes map[Instrument][]Quote
}

func NewPriceStore(quote Instrument) *PriceStore {
	return &PriceStore{quote: quote, quotes: make(map[Instrument][]Quote)}
}

// QuoteInstrument returns the instrument prices are expressed in.
func (ps *PriceStore) QuoteInstrument() Instrument { return ps.quote }

// Set records a quote. Quotes for an instrument must arrive in time order.
func (ps *PriceStore) Set(q Quote) error {
	if q.Instrument == ps.quote {
		return fmt.Errorf("set price: %s is the quote instrument", q.Instrument)
	}
	if q.Price.IsNegative() {
		return fmt.Errorf("set price: negative price %s for %s", q.Price, q.Instrument)
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	hist := ps.quotes[q.Instrument]
	if n := len(hist); n > 0 && q.Time.Before(hist[n-1].Time) {
		return fmt.Errorf("set price: %s quote at %s is older than %s", q.Instrument, q.Time.Format(time.RFC3339), hist[n-1].Time.Format(time.RFC3339))
	}
	ps.quotes[q.Instrument] = append(hist, q)
	return nil
}

// Latest returns the most recent quote for inst.
func (ps *PriceStore) Latest(inst Instrument) (Quote, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	hist := ps.quotes[inst]
	if len(hist) == 0 {
		return Quote{}, fmt.Errorf("%s: %w", inst, ErrNoPrice)
	}
	return hist[len(hist)-1], nil
}

// PriceAsOf returns the last quote for inst at or before at.
func (ps *PriceStore) PriceAsOf(inst Instrument, at time.Time) (Quote, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	hist := ps.quotes[inst]
	i := sort.Search(len(hist), func(i int) bool { return hist[i].Time.After(at) })
	if i == 0 {
		return Quote{}, fmt.Errorf("%s as of %s: %w", inst, at.Format(time.RFC3339), ErrNoPrice)
	}
	return hist[i-1], nil
}

// Value converts a into the quote instrument using the price as of at. The
// quote instrument is its own price.
func (ps *PriceStore) Value(a Asset, at time.Time) (Valuation, error) {
	if a.Instrument() == ps.quote {
		return NewValuation(a.Round()), nil
	}
	q, err := ps.PriceAsOf(a.Instrument(), at)
	if err != nil {
		return Valuation{}, fmt.Errorf("value %s: %w", a, err)
	}
	return NewValuation(a.Convert(q.Price, ps.quote)), nil
}
