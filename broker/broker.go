package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/merchant/market"
)

// Broker is what a strategy trades through.
type Broker interface {
	Quote(ctx context.Context, instrument string) (market.Quote, error)
	Holdings(ctx context.Context) ([]market.Asset, error)
	CreateMarketOrder(ctx context.Context, req MarketOrderRequest) (OrderFill, error)
}

// Side of a market order.
type Side int8

const (
	Buy  Side = +1
	Sell Side = -1
)

func (s Side) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

// MarketOrderRequest asks to buy (positive Units) or sell (negative Units) an
// instrument against the cash instrument at the current quote.
type MarketOrderRequest struct {
	Instrument string
	Units      decimal.Decimal
	Reason     string
}

func (r MarketOrderRequest) Side() Side {
	if r.Units.IsNegative() {
		return Sell
	}
	return Buy
}

// Validate rejects requests without an instrument or with zero units.
func (r MarketOrderRequest) Validate() error {
	if r.Instrument == "" {
		return fmt.Errorf("market order: instrument is required")
	}
	if r.Units.IsZero() {
		return fmt.Errorf("market order %s: units must be non-zero", r.Instrument)
	}
	return nil
}

// OrderFill describes an executed market order.
type OrderFill struct {
	TradeID    string
	Instrument string
	Units      decimal.Decimal
	Price      decimal.Decimal
	Time       time.Time

	// Value is the trade value in the cash instrument.
	Value market.Valuation

	// Closed counts the lots (or parts of lots) the order closed.
	Closed int
}

// Price is one instrument's price in a tick.
type Price struct {
	Instrument string
	Price      decimal.Decimal
}

// Tick is a set of prices observed at the same time.
type Tick struct {
	Time   time.Time
	Prices []Price
}

// Price returns the price of instrument in the tick.
func (t Tick) Price(instrument string) (decimal.Decimal, bool) {
	for _, p := range t.Prices {
		if p.Instrument == instrument {
			return p.Price, true
		}
	}
	return decimal.Decimal{}, false
}
