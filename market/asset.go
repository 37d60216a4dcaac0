package market

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Asset is a quantity of one instrument.
//
// Quantities are kept as given at construction. Every arithmetic result is
// rounded half-even (banker's rounding) to the instrument's precision, and
// sign tests look at the quantity rounded the same way, so sequences of
// Add/Sub never accumulate digits the instrument cannot represent.
type Asset struct {
	instrument Instrument
	quantity   decimal.Decimal
}

// NewAsset returns an asset of quantity units of inst.
func NewAsset(inst Instrument, quantity decimal.Decimal) Asset {
	return Asset{instrument: inst, quantity: quantity}
}

// Zero returns the zero asset of inst.
func Zero(inst Instrument) Asset {
	return Asset{instrument: inst, quantity: decimal.Zero}
}

// A is a convenient factory for literal quantities. Strings must be valid
// decimals; it panics otherwise.
func A[T string | float64 | int | int32 | int64 | decimal.Decimal](inst Instrument, value T) Asset {
	switch v := any(value).(type) {
	case string:
		return NewAsset(inst, decimal.RequireFromString(v))
	case float64:
		return NewAsset(inst, decimal.NewFromFloat(v))
	case int:
		return NewAsset(inst, decimal.NewFromInt(int64(v)))
	case int32:
		return NewAsset(inst, decimal.NewFromInt32(v))
	case int64:
		return NewAsset(inst, decimal.NewFromInt(v))
	case decimal.Decimal:
		return NewAsset(inst, v)
	default:
		panic("unsupported type")
	}
}

func (a Asset) Instrument() Instrument    { return a.instrument }
func (a Asset) Quantity() decimal.Decimal { return a.quantity }

// Round returns the asset with its quantity rounded half-even to the
// instrument's precision.
func (a Asset) Round() Asset {
	return Asset{instrument: a.instrument, quantity: a.quantity.RoundBank(a.instrument.Precision)}
}

func (a Asset) check(op string, b Asset) error {
	if a.instrument != b.instrument {
		return &InstrumentMismatchError{Op: op, Left: a.instrument, Right: b.instrument}
	}
	return nil
}

// Add returns a+b. Both assets must share the same instrument.
func (a Asset) Add(b Asset) (Asset, error) {
	if err := a.check("add", b); err != nil {
		return Asset{}, err
	}
	return Asset{instrument: a.instrument, quantity: a.quantity.Add(b.quantity)}.Round(), nil
}

// Sub returns a-b. The result may be negative: sufficiency checks belong to
// the caller.
func (a Asset) Sub(b Asset) (Asset, error) {
	if err := a.check("subtract", b); err != nil {
		return Asset{}, err
	}
	return Asset{instrument: a.instrument, quantity: a.quantity.Sub(b.quantity)}.Round(), nil
}

// Cmp compares quantities at the instrument's precision.
func (a Asset) Cmp(b Asset) (int, error) {
	if err := a.check("compare", b); err != nil {
		return 0, err
	}
	return a.Round().quantity.Cmp(b.Round().quantity), nil
}

func (a Asset) LessThan(b Asset) (bool, error) {
	c, err := a.Cmp(b)
	return c < 0, err
}

func (a Asset) LessThanOrEqual(b Asset) (bool, error) {
	c, err := a.Cmp(b)
	return err == nil && c <= 0, err
}

func (a Asset) GreaterThan(b Asset) (bool, error) {
	c, err := a.Cmp(b)
	return c > 0, err
}

func (a Asset) GreaterThanOrEqual(b Asset) (bool, error) {
	c, err := a.Cmp(b)
	return err == nil && c >= 0, err
}

// Equal reports whether both instrument and rounded quantity match. Assets of
// different instruments are simply not equal.
func (a Asset) Equal(b Asset) bool {
	c, err := a.Cmp(b)
	return err == nil && c == 0
}

func (a Asset) IsZero() bool     { return a.Round().quantity.IsZero() }
func (a Asset) IsPositive() bool { return a.Round().quantity.IsPositive() }
func (a Asset) IsNegative() bool { return a.Round().quantity.IsNegative() }

// Neg returns the asset with its quantity negated.
func (a Asset) Neg() Asset { return Asset{instrument: a.instrument, quantity: a.quantity.Neg()} }

// Convert returns the asset valued in another instrument at price units of
// to per unit of a, rounded to the precision of to.
func (a Asset) Convert(price decimal.Decimal, to Instrument) Asset {
	return Asset{instrument: to, quantity: a.quantity.Mul(price)}.Round()
}

// Scale returns a * num / den, rounded to the instrument's precision.
// A zero den yields the zero asset.
func (a Asset) Scale(num, den decimal.Decimal) Asset {
	if den.IsZero() {
		return Zero(a.instrument)
	}
	return Asset{instrument: a.instrument, quantity: a.quantity.Mul(num).Div(den)}.Round()
}

// String formats the asset as "<quantity> <symbol>" with exactly precision digits.
func (a Asset) String() string {
	return fmt.Sprintf("%s %s", a.quantity.StringFixedBank(a.instrument.Precision), a.instrument.Symbol)
}

type assetJSON struct {
	Instrument string          `json:"instrument"`
	Precision  int32           `json:"precision"`
	Quantity   decimal.Decimal `json:"quantity"`
}

func (a Asset) MarshalJSON() ([]byte, error) {
	return json.Marshal(assetJSON{Instrument: a.instrument.Symbol, Precision: a.instrument.Precision, Quantity: a.quantity})
}

func (a *Asset) UnmarshalJSON(data []byte) error {
	var v assetJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	inst, err := NewInstrument(v.Instrument, v.Precision)
	if err != nil {
		return err
	}
	*a = NewAsset(inst, v.Quantity)
	return nil
}
