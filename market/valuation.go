package market

import (
	"time"

	"github.com/Rhymond/go-money"
)

// Valuation is an asset expressed in the benchmark instrument.
type Valuation struct {
	Asset
}

// NewValuation wraps an asset already denominated in the benchmark instrument.
func NewValuation(a Asset) Valuation { return Valuation{Asset: a} }

// Add sums two valuations of the same benchmark.
func (v Valuation) Add(w Valuation) (Valuation, error) {
	sum, err := v.Asset.Add(w.Asset)
	if err != nil {
		return Valuation{}, err
	}
	return Valuation{Asset: sum}, nil
}

// Sub returns v-w.
func (v Valuation) Sub(w Valuation) (Valuation, error) {
	diff, err := v.Asset.Sub(w.Asset)
	if err != nil {
		return Valuation{}, err
	}
	return Valuation{Asset: diff}, nil
}

// Format renders the valuation with the currency formatter when the benchmark
// is an ISO 4217 currency whose minor unit matches the instrument precision,
// falling back to Asset.String otherwise.
func (v Valuation) Format() string {
	cur := money.GetCurrency(v.instrument.Symbol)
	if cur == nil || int32(cur.Fraction) != v.instrument.Precision {
		return v.String()
	}
	minor := v.quantity.Shift(int32(cur.Fraction)).RoundBank(0)
	return cur.Formatter().Format(minor.IntPart())
}

// Pricer converts an asset into its value in a benchmark instrument at a
// point in time.
type Pricer interface {
	Value(a Asset, at time.Time) (Valuation, error)
}
