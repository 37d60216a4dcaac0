// market/instruments.go
package market

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Rhymond/go-money"
)

// Instrument identifies a tradeable unit and the number of fractional digits
// its quantities carry. Two instruments are the same instrument when both
// symbol and precision match, so Instrument can be used directly as a map key.
type Instrument struct {
	Symbol    string
	Precision int32
}

// NewInstrument returns an instrument, rejecting empty symbols and negative precision.
func NewInstrument(symbol string, precision int32) (Instrument, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return Instrument{}, fmt.Errorf("instrument symbol is required")
	}
	if precision < 0 {
		return Instrument{}, fmt.Errorf("instrument %s: precision must be non-negative, got %d", symbol, precision)
	}
	return Instrument{Symbol: symbol, Precision: precision}, nil
}

// Currency returns the cash instrument for an ISO 4217 code, with the
// currency's minor unit as precision (USD -> 2, JPY -> 0, BHD -> 3).
func Currency(code string) (Instrument, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	cur := money.GetCurrency(code)
	if cur == nil {
		return Instrument{}, fmt.Errorf("unknown currency %q", code)
	}
	return Instrument{Symbol: cur.Code, Precision: int32(cur.Fraction)}, nil
}

// IsCurrency reports whether the instrument symbol is an ISO 4217 code.
func (i Instrument) IsCurrency() bool {
	return money.GetCurrency(i.Symbol) != nil
}

func (i Instrument) String() string { return i.Symbol }

// Registry maps symbols to instruments.
type Registry map[string]Instrument

// NewRegistry returns a registry holding the given instruments.
func NewRegistry(instruments ...Instrument) (Registry, error) {
	r := make(Registry, len(instruments))
	for _, inst := range instruments {
		if err := r.Register(inst); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an instrument. Registering the same instrument twice is a
// no-op; registering a symbol with a different precision fails.
func (r Registry) Register(inst Instrument) error {
	if inst.Symbol == "" {
		return fmt.Errorf("register instrument: empty symbol")
	}
	if prev, ok := r[inst.Symbol]; ok && prev != inst {
		return fmt.Errorf("register instrument %s: precision %d conflicts with %d", inst.Symbol, inst.Precision, prev.Precision)
	}
	r[inst.Symbol] = inst
	return nil
}

// Lookup returns the instrument for a symbol.
func (r Registry) Lookup(symbol string) (Instrument, error) {
	inst, ok := r[symbol]
	if !ok {
		return Instrument{}, fmt.Errorf("unknown instrument %s", symbol)
	}
	return inst, nil
}

// Symbols returns the registered symbols in lexical order.
func (r Registry) Symbols() []string {
	out := make([]string, 0, len(r))
	for s := range r {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
