package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/merchant/market"
)

var (
	usd  = market.Instrument{Symbol: "USD", Precision: 2}
	aapl = market.Instrument{Symbol: "AAPL", Precision: 0}
	btc  = market.Instrument{Symbol: "BTC", Precision: 8}

	t0 = time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)
)

// buy returns a valued trade buying qty of inst for cost USD.
func buy(id string, inst market.Instrument, qty, cost string) ValuedTrade {
	return ValuedTrade{
		Trade: Trade{ID: id, Time: t0, Sell: market.A(usd, cost), Buy: market.A(inst, qty)},
		Value: market.NewValuation(market.A(usd, cost)),
	}
}

// sell returns a valued trade selling qty of inst for proceeds USD.
func sell(id string, inst market.Instrument, qty, proceeds string) ValuedTrade {
	return ValuedTrade{
		Trade: Trade{ID: id, Time: t0, Sell: market.A(inst, qty), Buy: market.A(usd, proceeds)},
		Value: market.NewValuation(market.A(usd, proceeds)),
	}
}

// newMarket returns a simulated USD market with the given prices set at t0.
func newMarket(t *testing.T, prices map[market.Instrument]string) *market.Simulation {
	t.Helper()
	m := market.NewSimulation(t0, usd)
	for inst, px := range prices {
		require.NoError(t, m.Set(market.Quote{Instrument: inst, Price: decimal.RequireFromString(px), Time: t0}))
	}
	return m
}

// counting is a benchmark that counts how often it computes.
type counting struct {
	name     string
	computes int
	value    float64
}

func (c *counting) Name() string { return c.name }

func (c *counting) Bind(p *Portfolio) BoundBenchmark {
	return &boundCounting{parent: c}
}

type boundCounting struct {
	parent *counting
	cached *float64
}

func (b *boundCounting) CheckArgs(args Args) error {
	for k, v := range args {
		if k != "scale" {
			return errUnknownArg
		}
		if _, ok := v.(float64); !ok {
			return errBadArgType
		}
	}
	return nil
}

func (b *boundCounting) Value(args Args) (float64, error) {
	if b.cached == nil {
		b.parent.computes++
		v := b.parent.value
		b.cached = &v
	}
	return *b.cached, nil
}

func (b *boundCounting) InvalidateCache() { b.cached = nil }

type testErr string

func (e testErr) Error() string { return string(e) }

const (
	errUnknownArg = testErr("unknown argument")
	errBadArgType = testErr("bad argument type")
)
