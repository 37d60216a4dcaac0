package sim

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/merchant/broker"
	"github.com/rustyeddy/merchant/journal"
	"github.com/rustyeddy/merchant/market"
	"github.com/rustyeddy/merchant/portfolio"
)

var (
	usd  = market.Instrument{Symbol: "USD", Precision: 2}
	aapl = market.Instrument{Symbol: "AAPL", Precision: 0}
	btc  = market.Instrument{Symbol: "BTC", Precision: 8}

	t0 = time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)
)

type testJournal struct {
	trades []journal.TradeRecord
	closed []journal.ClosedRecord
	values []journal.ValueRecord
	done   bool
}

func (j *testJournal) RecordTrade(rec journal.TradeRecord) error {
	j.trades = append(j.trades, rec)
	return nil
}

func (j *testJournal) RecordClosed(rec journal.ClosedRecord) error {
	j.closed = append(j.closed, rec)
	return nil
}

func (j *testJournal) RecordValue(rec journal.ValueRecord) error {
	j.values = append(j.values, rec)
	return nil
}

func (j *testJournal) Close() error {
	j.done = true
	return nil
}

func newEngine(t *testing.T, assets ...market.Asset) (*Engine, *testJournal) {
	t.Helper()
	m := market.NewSimulation(t0, usd)
	reg, err := market.NewRegistry(usd, aapl, btc)
	require.NoError(t, err)
	p, err := portfolio.New(portfolio.Config{Market: m, Benchmark: usd, Assets: assets})
	require.NoError(t, err)
	t.Cleanup(p.Close)
	j := &testJournal{}
	return NewEngine(m, reg, p, j), j
}

func px(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func setPrice(t *testing.T, e *Engine, at time.Time, prices ...broker.Price) {
	t.Helper()
	require.NoError(t, e.UpdatePrice(broker.Tick{Time: at, Prices: prices}))
}

func order(t *testing.T, e *Engine, symbol, units string) broker.OrderFill {
	t.Helper()
	fill, err := e.CreateMarketOrder(context.Background(), broker.MarketOrderRequest{
		Instrument: symbol,
		Units:      px(units),
	})
	require.NoError(t, err)
	return fill
}

func TestEngineUpdatePriceSnapshots(t *testing.T) {
	t.Parallel()

	e, j := newEngine(t, market.A(usd, 1000))
	setPrice(t, e, t0.Add(time.Minute), broker.Price{Instrument: "AAPL", Price: px("100")})

	assert.Equal(t, t0.Add(time.Minute), e.Market().Now())
	require.Len(t, j.values, 1)
	assert.True(t, j.values[0].Value.Equal(px("1000")))
	assert.Len(t, e.Portfolio().ValueHistory(), 2)

	q, err := e.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, q.Price.Equal(px("100")))

	err = e.UpdatePrice(broker.Tick{Time: t0, Prices: []broker.Price{{Instrument: "AAPL", Price: px("99")}}})
	assert.ErrorIs(t, err, market.ErrClockBackwards)

	err = e.UpdatePrice(broker.Tick{Time: t0.Add(time.Hour), Prices: []broker.Price{{Instrument: "ETH", Price: px("1")}}})
	assert.Error(t, err)
}

func TestEngineBuyAndSell(t *testing.T) {
	t.Parallel()

	e, j := newEngine(t, market.A(usd, 10000))
	ctx := context.Background()

	setPrice(t, e, t0, broker.Price{Instrument: "AAPL", Price: px("100")})
	buy := order(t, e, "AAPL", "10")
	assert.True(t, buy.Units.Equal(px("10")))
	assert.True(t, buy.Value.Equal(market.A(usd, 1000)))
	assert.Equal(t, 0, buy.Closed)

	setPrice(t, e, t0.Add(time.Minute), broker.Price{Instrument: "AAPL", Price: px("110.50")})
	sell := order(t, e, "AAPL", "-4")
	assert.True(t, sell.Units.Equal(px("-4")))
	assert.Equal(t, 1, sell.Closed)

	held, err := e.Holdings(ctx)
	require.NoError(t, err)
	require.Len(t, held, 2)
	assert.True(t, e.Portfolio().Get(usd).Equal(market.A(usd, "9442.00")))
	assert.True(t, e.Portfolio().Get(aapl).Equal(market.A(aapl, 6)))

	require.Len(t, j.trades, 2)
	assert.Equal(t, buy.TradeID, j.trades[0].TradeID)
	assert.Equal(t, "USD", j.trades[0].SellSymbol)
	assert.Equal(t, "AAPL", j.trades[1].SellSymbol)

	require.Len(t, j.closed, 1)
	assert.Equal(t, buy.TradeID, j.closed[0].OpenTradeID)
	assert.True(t, j.closed[0].RealizedPL.Equal(px("42")))

	// trade IDs sort by simulated time
	assert.Less(t, buy.TradeID, sell.TradeID)
}

func TestEngineRejectsOrders(t *testing.T) {
	t.Parallel()

	e, j := newEngine(t, market.A(usd, 100))
	ctx := context.Background()
	setPrice(t, e, t0, broker.Price{Instrument: "AAPL", Price: px("100")})

	tests := []struct {
		name string
		req  broker.MarketOrderRequest
		is   error
	}{
		{"insufficient cash", broker.MarketOrderRequest{Instrument: "AAPL", Units: px("2")}, portfolio.ErrInsufficientBalance},
		{"sell unheld", broker.MarketOrderRequest{Instrument: "AAPL", Units: px("-1")}, portfolio.ErrInsufficientBalance},
		{"no price", broker.MarketOrderRequest{Instrument: "BTC", Units: px("0.1")}, market.ErrNoPrice},
		{"rounds to zero", broker.MarketOrderRequest{Instrument: "AAPL", Units: px("0.2")}, nil},
		{"cash instrument", broker.MarketOrderRequest{Instrument: "USD", Units: px("1")}, nil},
		{"unknown instrument", broker.MarketOrderRequest{Instrument: "ETH", Units: px("1")}, nil},
		{"zero units", broker.MarketOrderRequest{Instrument: "AAPL"}, nil},
	}
	for _, tt := range tests {
		_, err := e.CreateMarketOrder(ctx, tt.req)
		require.Error(t, err, tt.name)
		if tt.is != nil {
			assert.ErrorIs(t, err, tt.is, tt.name)
		}
	}

	assert.Empty(t, j.trades)
	assert.Empty(t, e.Portfolio().Trades())
	assert.True(t, e.Portfolio().Get(usd).Equal(market.A(usd, 100)))
}

func TestEngineFractionalUnitsRounded(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t, market.A(usd, 100000))
	setPrice(t, e, t0, broker.Price{Instrument: "BTC", Price: px("40000")})

	fill := order(t, e, "BTC", "0.123456785")
	assert.True(t, fill.Units.Equal(px("0.12345678")), fill.Units.String())
	assert.True(t, fill.Value.Equal(market.A(usd, "4938.27")), fill.Value.String())
}

func TestEngineCloseAll(t *testing.T) {
	t.Parallel()

	e, j := newEngine(t, market.A(usd, 100000))
	ctx := context.Background()

	setPrice(t, e, t0,
		broker.Price{Instrument: "AAPL", Price: px("100")},
		broker.Price{Instrument: "BTC", Price: px("40000")},
	)
	order(t, e, "AAPL", "10")
	order(t, e, "BTC", "0.5")
	order(t, e, "AAPL", "5")

	setPrice(t, e, t0.Add(time.Hour),
		broker.Price{Instrument: "AAPL", Price: px("90")},
		broker.Price{Instrument: "BTC", Price: px("42000")},
	)

	fills, err := e.CloseAll(ctx, "")
	require.NoError(t, err)
	require.Len(t, fills, 2)

	assert.False(t, e.Portfolio().Contains(aapl))
	assert.False(t, e.Portfolio().Contains(btc))
	// -150 on AAPL, +1000 on BTC
	assert.True(t, e.Portfolio().Get(usd).Equal(market.A(usd, "100850.00")))

	assert.Len(t, j.closed, 3)
	assert.Equal(t, "CloseAll", j.trades[len(j.trades)-1].Reason)

	fills, err = e.CloseAll(ctx, "again")
	require.NoError(t, err)
	assert.Empty(t, fills)
}

func TestEngineNilJournal(t *testing.T) {
	t.Parallel()

	m := market.NewSimulation(t0, usd)
	reg, err := market.NewRegistry(usd, aapl)
	require.NoError(t, err)
	p, err := portfolio.New(portfolio.Config{Market: m, Benchmark: usd, Assets: []market.Asset{market.A(usd, 500)}})
	require.NoError(t, err)
	defer p.Close()

	e := NewEngine(m, reg, p, nil)
	require.NoError(t, e.UpdatePrice(broker.Tick{Time: t0, Prices: []broker.Price{{Instrument: "AAPL", Price: px("100")}}}))
	_, err = e.CreateMarketOrder(context.Background(), broker.MarketOrderRequest{Instrument: "AAPL", Units: px("1")})
	require.NoError(t, err)
}
