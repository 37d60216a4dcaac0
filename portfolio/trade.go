package portfolio

import (
	"fmt"
	"time"

	"github.com/rustyeddy/merchant/market"
)

// Trade exchanges one asset sold for one asset bought.
type Trade struct {
	ID   string
	Time time.Time
	Sell market.Asset
	Buy  market.Asset
}

// NewTrade validates and returns a trade. Buying and selling the same
// instrument, or negative quantities, are rejected here so that lot matching
// never sees them.
func NewTrade(id string, at time.Time, sell, buy market.Asset) (Trade, error) {
	if sell.Instrument() == buy.Instrument() {
		return Trade{}, fmt.Errorf("trade %s: %w (%s)", id, ErrSameInstrument, sell.Instrument())
	}
	if sell.IsNegative() || buy.IsNegative() {
		return Trade{}, fmt.Errorf("trade %s: %w", id, ErrNegativeQuantity)
	}
	return Trade{ID: id, Time: at, Sell: sell, Buy: buy}, nil
}

func (t Trade) String() string {
	return fmt.Sprintf("%s %s -> %s", t.ID, t.Sell, t.Buy)
}

// ValuedTrade is a trade together with its value in the benchmark instrument.
type ValuedTrade struct {
	Trade
	Value market.Valuation
}

// ValueTrade values the bought side of t through p at the trade time. When
// the benchmark is the sold instrument, the sold amount is the value.
func ValueTrade(t Trade, p market.Pricer, benchmark market.Instrument) (ValuedTrade, error) {
	side := t.Buy
	if t.Sell.Instrument() == benchmark {
		side = t.Sell
	}
	v, err := p.Value(side, t.Time)
	if err != nil {
		return ValuedTrade{}, fmt.Errorf("value trade %s: %w", t.ID, err)
	}
	return ValuedTrade{Trade: t, Value: v}, nil
}

// ClosedPosition records that Amount of the lot opened by Open was closed by Close.
type ClosedPosition struct {
	Amount market.Asset
	Open   ValuedTrade
	Close  ValuedTrade
}

// Cost is the share of the opening trade's value attributable to Amount.
func (c ClosedPosition) Cost() market.Valuation {
	return market.NewValuation(c.Open.Value.Scale(c.Amount.Quantity(), c.Open.Buy.Quantity()))
}

// Proceeds is the share of the closing trade's value attributable to Amount.
func (c ClosedPosition) Proceeds() market.Valuation {
	return market.NewValuation(c.Close.Value.Scale(c.Amount.Quantity(), c.Close.Sell.Quantity()))
}

// PL is the realized profit (positive) or loss (negative) of the position.
// OpenPositionStack only builds closed positions from trades valued in its
// benchmark instrument, so Cost and Proceeds always share an instrument; a
// mismatch is a ledger bug and panics.
func (c ClosedPosition) PL() market.Valuation {
	pl, err := c.Proceeds().Sub(c.Cost())
	if err != nil {
		panic(fmt.Sprintf("closed position %s/%s: %v", c.Open.ID, c.Close.ID, err))
	}
	return pl
}

// Holding returns how long the position was open.
func (c ClosedPosition) Holding() time.Duration {
	return c.Close.Time.Sub(c.Open.Time)
}
