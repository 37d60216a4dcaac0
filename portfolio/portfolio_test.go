package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/merchant/market"
)

func newPortfolio(t *testing.T, m *market.Simulation, regs []Registration, assets ...market.Asset) *Portfolio {
	t.Helper()
	p, err := New(Config{Market: m, Benchmark: usd, Assets: assets, Benchmarks: regs})
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

// assertConserved checks that every non-benchmark holding equals its open lots.
func assertConserved(t *testing.T, p *Portfolio) {
	t.Helper()
	for _, inst := range []market.Instrument{aapl, btc} {
		total := market.Zero(inst)
		for _, l := range p.OpenLots(inst) {
			var err error
			total, err = total.Add(l.Asset)
			require.NoError(t, err)
		}
		assert.True(t, p.Get(inst).Equal(total), "%s: holding %s, lots %s", inst, p.Get(inst), total)
	}
}

func TestPortfolioExecuteTrade(t *testing.T) {
	t.Parallel()

	m := newMarket(t, map[market.Instrument]string{aapl: "100"})
	p := newPortfolio(t, m, nil, market.A(usd, 1000))

	closed, err := p.ExecuteTrade(buy("B1", aapl, "5", "500"))
	require.NoError(t, err)
	assert.Empty(t, closed)

	closed, err = p.ExecuteTrade(buy("B2", aapl, "3", "330"))
	require.NoError(t, err)
	assert.Empty(t, closed)

	closed, err = p.ExecuteTrade(sell("S1", aapl, "4", "480"))
	require.NoError(t, err)
	require.Len(t, closed, 2)
	assert.Equal(t, "B2", closed[0].Open.ID)
	assert.Equal(t, "B1", closed[1].Open.ID)

	assert.True(t, p.Get(usd).Equal(market.A(usd, 650)))
	assert.True(t, p.Get(aapl).Equal(market.A(aapl, 4)))
	assert.Len(t, p.Trades(), 3)
	assert.Len(t, p.ClosedPositions(), 2)
	assertConserved(t, p)
}

func TestPortfolioFailedTradeIsAtomic(t *testing.T) {
	t.Parallel()

	m := newMarket(t, map[market.Instrument]string{aapl: "100"})
	bench := &counting{name: "count", value: 1}
	p := newPortfolio(t, m, []Registration{{Benchmark: bench}}, market.A(usd, 100))

	_, err := p.Benchmark("count", nil)
	require.NoError(t, err)

	_, err = p.ExecuteTrade(buy("B1", aapl, "2", "200"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	assert.True(t, p.Get(usd).Equal(market.A(usd, 100)))
	assert.False(t, p.Contains(aapl))
	assert.Empty(t, p.Trades())
	assert.Empty(t, p.OpenLots(aapl))
	assert.Empty(t, p.ClosedPositions())

	// a failed trade does not invalidate
	_, err = p.Benchmark("count", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, bench.computes)
}

func TestPortfolioRejectsInvalidTrades(t *testing.T) {
	t.Parallel()

	m := newMarket(t, map[market.Instrument]string{aapl: "100"})
	p := newPortfolio(t, m, nil, market.A(usd, 1000), market.A(aapl, 2))

	same := ValuedTrade{
		Trade: Trade{ID: "X", Time: t0, Sell: market.A(aapl, 1), Buy: market.A(aapl, 1)},
		Value: market.NewValuation(market.A(usd, 100)),
	}
	_, err := p.ExecuteTrade(same)
	assert.ErrorIs(t, err, ErrSameInstrument)

	wrongValue := buy("B1", aapl, "1", "100")
	wrongValue.Value = market.NewValuation(market.A(btc, "0.01"))
	_, err = p.ExecuteTrade(wrongValue)
	assert.ErrorIs(t, err, market.ErrInstrumentMismatch)

	_, err = p.ExecuteTrade(sell("S1", aapl, "3", "300"))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	assert.Empty(t, p.Trades())
	assertConserved(t, p)
}

func TestPortfolioStartingAssetsOpenLots(t *testing.T) {
	t.Parallel()

	m := newMarket(t, map[market.Instrument]string{aapl: "100", btc: "40000"})
	p := newPortfolio(t, m, nil, market.A(usd, 500), market.A(aapl, 10), market.A(btc, "0.5"))

	lots := p.OpenLots(aapl)
	require.Len(t, lots, 1)
	assert.Equal(t, "open-AAPL", lots[0].Open.ID)
	assert.True(t, lots[0].Open.Value.Equal(market.A(usd, 1000)))
	assert.Empty(t, p.OpenLots(usd))
	assertConserved(t, p)

	hist := p.ValueHistory()
	require.Len(t, hist, 1)
	assert.True(t, hist[0].Value.Equal(market.A(usd, 21500)))
	assert.Equal(t, t0, hist[0].Time)

	closed, err := p.ExecuteTrade(sell("S1", aapl, "10", "1100"))
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, "100.00 USD", closed[0].PL().String())
	assertConserved(t, p)
}

func TestPortfolioStartingAssetWithoutPriceFails(t *testing.T) {
	t.Parallel()

	m := newMarket(t, nil)
	_, err := New(Config{Market: m, Benchmark: usd, Assets: []market.Asset{market.A(aapl, 1)}})
	assert.ErrorIs(t, err, market.ErrNoPrice)
}

func TestPortfolioConservationOverSequence(t *testing.T) {
	t.Parallel()

	m := newMarket(t, map[market.Instrument]string{aapl: "100", btc: "40000"})
	p := newPortfolio(t, m, nil, market.A(usd, 100000))

	trades := []ValuedTrade{
		buy("1", aapl, "10", "1000"),
		buy("2", btc, "0.25", "10000"),
		sell("3", aapl, "4", "420"),
		buy("4", aapl, "7", "700"),
		sell("5", btc, "0.1", "4100"),
		sell("6", aapl, "13", "1300"),
		buy("7", btc, "0.00000001", "0.01"),
		sell("8", btc, "0.15000001", "6000"),
	}
	for _, tr := range trades {
		_, err := p.ExecuteTrade(tr)
		require.NoError(t, err, tr.ID)
		assertConserved(t, p)
	}
	assert.False(t, p.Contains(aapl))
	assert.False(t, p.Contains(btc))
	assert.Len(t, p.Trades(), len(trades))
}

func TestPortfolioConservationOffPrecision(t *testing.T) {
	t.Parallel()

	xyz := market.Instrument{Symbol: "XYZ", Precision: 2}
	m := newMarket(t, nil)
	p := newPortfolio(t, m, nil, market.A(usd, 1000))

	held := func() market.Asset {
		total := market.Zero(xyz)
		for _, l := range p.OpenLots(xyz) {
			assert.True(t, l.Asset.IsPositive(), "open lot %s", l.Asset)
			assert.True(t, l.Asset.Equal(l.Asset.Round()), "lot %s off precision", l.Asset)
			var err error
			total, err = total.Add(l.Asset)
			require.NoError(t, err)
		}
		return total
	}

	steps := []struct {
		trade ValuedTrade
		want  string
	}{
		{buy("B1", xyz, "1.005", "10"), "1.00"},
		{buy("B2", xyz, "0.015", "0.15"), "1.02"},
		{sell("S1", xyz, "0.01", "0.10"), "1.01"},
		{sell("S2", xyz, "0.004", "0.04"), "1.01"},
		{sell("S3", xyz, "1.01", "10.10"), "0"},
	}
	for _, st := range steps {
		_, err := p.ExecuteTrade(st.trade)
		require.NoError(t, err, st.trade.ID)
		want := market.A(xyz, st.want)
		assert.True(t, p.Get(xyz).Equal(want), "%s: holding %s", st.trade.ID, p.Get(xyz))
		assert.True(t, held().Equal(want), "%s: lots %s", st.trade.ID, held())
	}
	assert.False(t, p.Contains(xyz))
	assert.Empty(t, p.OpenLots(xyz))

	// recorded trades carry the quantities that were applied
	trades := p.Trades()
	require.Len(t, trades, len(steps))
	assert.Equal(t, "1.00 XYZ", trades[0].Buy.String())
	assert.True(t, trades[0].Buy.Quantity().Equal(decimal.RequireFromString("1")))
}

func TestPortfolioValueAndSnapshot(t *testing.T) {
	t.Parallel()

	m := newMarket(t, map[market.Instrument]string{aapl: "100"})
	p := newPortfolio(t, m, nil, market.A(usd, 1000), market.A(aapl, 2))

	later := t0.Add(time.Hour)
	require.NoError(t, m.Set(market.Quote{Instrument: aapl, Price: decimal.RequireFromString("101.255"), Time: later}))

	v, err := p.Value(later)
	require.NoError(t, err)
	assert.True(t, v.Equal(market.A(usd, "1202.51")), v.String())

	before, err := p.Value(t0)
	require.NoError(t, err)
	assert.True(t, before.Equal(market.A(usd, 1200)))

	_, err = p.Snapshot(later)
	require.NoError(t, err)
	hist := p.ValueHistory()
	require.Len(t, hist, 2)
	assert.Equal(t, later, hist[1].Time)

	_, err = p.Value(t0.Add(-time.Hour))
	assert.ErrorIs(t, err, market.ErrNoPrice)
}

func TestPortfolioInvalidatesBenchmarksOnTradeAndTick(t *testing.T) {
	t.Parallel()

	m := newMarket(t, map[market.Instrument]string{aapl: "100"})
	bench := &counting{name: "count", value: 7}
	p := newPortfolio(t, m, []Registration{{Benchmark: bench}}, market.A(usd, 1000))

	read := func() {
		t.Helper()
		v, err := p.Benchmark("count", nil)
		require.NoError(t, err)
		assert.Equal(t, 7.0, v)
	}

	read()
	read()
	assert.Equal(t, 1, bench.computes, "cached")

	_, err := p.ExecuteTrade(buy("B1", aapl, "1", "100"))
	require.NoError(t, err)
	read()
	assert.Equal(t, 2, bench.computes, "recomputed after trade")

	require.NoError(t, m.Advance(t0.Add(time.Minute)))
	read()
	assert.Equal(t, 3, bench.computes, "recomputed after tick")

	p.Close()
	require.NoError(t, m.Advance(t0.Add(2*time.Minute)))
	read()
	assert.Equal(t, 3, bench.computes, "detached portfolio ignores ticks")
}

func TestPortfolioInvalidatesBenchmarksOnSnapshot(t *testing.T) {
	t.Parallel()

	m := newMarket(t, map[market.Instrument]string{aapl: "100"})
	bench := &counting{name: "count", value: 7}
	p := newPortfolio(t, m, []Registration{{Benchmark: bench}}, market.A(usd, 1000), market.A(aapl, 1))

	_, err := p.Benchmark("count", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, bench.computes)

	_, err = p.Snapshot(t0)
	require.NoError(t, err)
	_, err = p.Benchmark("count", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, bench.computes, "recomputed after snapshot")

	// a failed snapshot records nothing and keeps the cache
	_, err = p.Snapshot(t0.Add(-time.Hour))
	assert.ErrorIs(t, err, market.ErrNoPrice)
	_, err = p.Benchmark("count", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, bench.computes)
	assert.Len(t, p.ValueHistory(), 2)
}

func TestPortfolioBenchmarkArgumentsCheckedAtConstruction(t *testing.T) {
	t.Parallel()

	m := newMarket(t, nil)
	bench := &counting{name: "count"}

	_, err := New(Config{
		Market:    m,
		Benchmark: usd,
		Benchmarks: []Registration{{
			Benchmark: bench,
			Args:      []Args{{"scale": 2.0}, {"window": 3}},
		}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidBenchmarkArguments)

	var ia *InvalidBenchmarkArgumentsError
	require.ErrorAs(t, err, &ia)
	assert.Equal(t, "count", ia.Benchmark)
	assert.Equal(t, Args{"window": 3}, ia.Args)
	assert.ErrorIs(t, err, errUnknownArg)
	assert.Equal(t, 0, bench.computes)
	assert.Equal(t, 0, m.Hooks(), "failed construction attaches nothing")
}

func TestPortfolioBenchmarkRead(t *testing.T) {
	t.Parallel()

	m := newMarket(t, nil)
	p := newPortfolio(t, m, []Registration{
		{Benchmark: &counting{name: "a", value: 1}, Args: []Args{{"scale": 1.0}}},
		{Benchmark: &counting{name: "b", value: 2}},
	}, market.A(usd, 1))

	assert.Equal(t, []string{"a", "b"}, p.Benchmarks())

	_, err := p.Benchmark("missing", nil)
	assert.ErrorIs(t, err, ErrUnknownBenchmark)

	_, err = p.Benchmark("a", Args{"scale": "x"})
	assert.ErrorIs(t, err, ErrInvalidBenchmarkArguments)

	v, err := p.Benchmark("b", nil)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	_, err = New(Config{Market: m, Benchmark: usd, Benchmarks: []Registration{
		{Benchmark: &counting{name: "a"}}, {Benchmark: &counting{name: "a"}},
	}})
	assert.Error(t, err)
}

func TestArgsKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", Args(nil).Key())
	assert.Equal(t, "a=1,b=x", Args{"b": "x", "a": 1}.Key())
}
