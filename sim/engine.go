package sim

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rustyeddy/merchant/broker"
	"github.com/rustyeddy/merchant/internal/id"
	"github.com/rustyeddy/merchant/internal/logger"
	"github.com/rustyeddy/merchant/journal"
	"github.com/rustyeddy/merchant/market"
	"github.com/rustyeddy/merchant/portfolio"
)

// Engine is a simulated broker. It feeds prices into the market, moves the
// market clock, and turns market orders into valued trades executed against
// the portfolio. Every trade, closed position and value snapshot is journaled.
type Engine struct {
	mu        sync.Mutex
	market    *market.Simulation
	registry  market.Registry
	portfolio *portfolio.Portfolio
	journal   journal.Journal
	ids       *id.Generator
	log       *zap.SugaredLogger
}

var _ broker.Broker = (*Engine)(nil)

// NewEngine returns an engine trading p on m. Order and price instruments are
// resolved through reg. A nil journal discards records.
func NewEngine(m *market.Simulation, reg market.Registry, p *portfolio.Portfolio, j journal.Journal) *Engine {
	if j == nil {
		j = journal.Discard{}
	}
	return &Engine{
		market:    m,
		registry:  reg,
		portfolio: p,
		journal:   j,
		ids:       id.NewGenerator(m.Now().UnixNano()),
		log:       logger.Nop(),
	}
}

// SetLogger replaces the engine's logger.
func (e *Engine) SetLogger(l *zap.SugaredLogger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if l == nil {
		l = logger.Nop()
	}
	e.log = l
}

// SetIDs replaces the trade ID generator.
func (e *Engine) SetIDs(g *id.Generator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ids = g
}

func (e *Engine) Market() *market.Simulation        { return e.market }
func (e *Engine) Portfolio() *portfolio.Portfolio   { return e.portfolio }
func (e *Engine) Registry() market.Registry         { return e.registry }
func (e *Engine) CashInstrument() market.Instrument { return e.portfolio.BenchmarkInstrument() }

// UpdatePrice records every price in the tick, advances the clock to the
// tick time and snapshots the portfolio value.
func (e *Engine) UpdatePrice(t broker.Tick) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t.Time.Before(e.market.Now()) {
		return fmt.Errorf("update price: tick at %s: %w", t.Time, market.ErrClockBackwards)
	}

	for _, p := range t.Prices {
		inst, err := e.registry.Lookup(p.Instrument)
		if err != nil {
			return fmt.Errorf("update price: %w", err)
		}
		if err := e.market.Set(market.Quote{Instrument: inst, Price: p.Price, Time: t.Time}); err != nil {
			return fmt.Errorf("update price: %w", err)
		}
	}

	if err := e.market.Advance(t.Time); err != nil {
		return fmt.Errorf("update price: %w", err)
	}

	v, err := e.portfolio.Snapshot(t.Time)
	if err != nil {
		return fmt.Errorf("update price: %w", err)
	}
	e.log.Debugw("tick", "time", t.Time, "prices", len(t.Prices), "value", v.String())

	return e.journal.RecordValue(journal.ValueRecord{
		Time:        t.Time,
		ValueSymbol: v.Instrument().Symbol,
		Value:       v.Quantity(),
	})
}

// Quote returns the price of instrument as of the current clock time.
func (e *Engine) Quote(ctx context.Context, instrument string) (market.Quote, error) {
	inst, err := e.registry.Lookup(instrument)
	if err != nil {
		return market.Quote{}, err
	}
	return e.market.PriceAsOf(inst, e.market.Now())
}

func (e *Engine) Holdings(ctx context.Context) ([]market.Asset, error) {
	return e.portfolio.Assets(), nil
}

// CreateMarketOrder buys (positive units) or sells (negative units) the
// instrument against the cash instrument at the current price. Units are
// rounded to the instrument precision.
func (e *Engine) CreateMarketOrder(ctx context.Context, req broker.MarketOrderRequest) (broker.OrderFill, error) {
	if err := ctx.Err(); err != nil {
		return broker.OrderFill{}, err
	}
	if err := req.Validate(); err != nil {
		return broker.OrderFill{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	inst, err := e.registry.Lookup(req.Instrument)
	if err != nil {
		return broker.OrderFill{}, fmt.Errorf("market order: %w", err)
	}
	units := market.NewAsset(inst, req.Units.Abs()).Round()
	if units.IsZero() {
		return broker.OrderFill{}, fmt.Errorf("market order %s: %s rounds to zero at precision %d", inst, req.Units, inst.Precision)
	}
	return e.fillLocked(inst, units, req.Side(), req.Reason)
}

func (e *Engine) fillLocked(inst market.Instrument, units market.Asset, side broker.Side, reason string) (broker.OrderFill, error) {
	cash := e.portfolio.BenchmarkInstrument()
	if inst == cash {
		return broker.OrderFill{}, fmt.Errorf("market order: cannot trade the cash instrument %s", cash)
	}

	now := e.market.Now()
	q, err := e.market.PriceAsOf(inst, now)
	if err != nil {
		return broker.OrderFill{}, fmt.Errorf("market order: %w", err)
	}
	amount := units.Convert(q.Price, cash)

	tradeID, err := e.ids.Next(now)
	if err != nil {
		return broker.OrderFill{}, fmt.Errorf("market order: trade id: %w", err)
	}

	sell, buy := amount, units
	if side == broker.Sell {
		sell, buy = units, amount
	}
	trade, err := portfolio.NewTrade(tradeID, now, sell, buy)
	if err != nil {
		return broker.OrderFill{}, fmt.Errorf("market order: %w", err)
	}
	vt, err := portfolio.ValueTrade(trade, e.market, cash)
	if err != nil {
		return broker.OrderFill{}, fmt.Errorf("market order: %w", err)
	}
	closed, err := e.portfolio.ExecuteTrade(vt)
	if err != nil {
		e.log.Infow("order rejected", "instrument", inst.Symbol, "side", side.String(), "units", units.String(), "err", err)
		return broker.OrderFill{}, fmt.Errorf("market order: %w", err)
	}

	if err := e.journal.RecordTrade(journal.NewTradeRecord(vt, reason)); err != nil {
		return broker.OrderFill{}, fmt.Errorf("journal trade %s: %w", tradeID, err)
	}
	for _, c := range closed {
		if err := e.journal.RecordClosed(journal.NewClosedRecord(c)); err != nil {
			return broker.OrderFill{}, fmt.Errorf("journal closed position %s: %w", tradeID, err)
		}
		e.log.Debugw("position closed",
			"instrument", c.Amount.Instrument().Symbol,
			"amount", c.Amount.String(),
			"open", c.Open.ID,
			"pl", c.PL().String(),
		)
	}

	e.log.Infow("order filled",
		"trade", tradeID,
		"instrument", inst.Symbol,
		"side", side.String(),
		"units", units.String(),
		"price", q.Price.String(),
		"value", vt.Value.String(),
		"closed", len(closed),
		"reason", reason,
	)

	fillUnits := units.Quantity()
	if side == broker.Sell {
		fillUnits = fillUnits.Neg()
	}
	return broker.OrderFill{
		TradeID:    tradeID,
		Instrument: inst.Symbol,
		Units:      fillUnits,
		Price:      q.Price,
		Time:       now,
		Value:      vt.Value,
		Closed:     len(closed),
	}, nil
}

// CloseAll sells every non-cash holding at the current price. Holdings are
// checked for prices before anything is sold.
func (e *Engine) CloseAll(ctx context.Context, reason string) ([]broker.OrderFill, error) {
	_ = ctx

	if reason == "" {
		reason = "CloseAll"
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cash := e.portfolio.BenchmarkInstrument()
	now := e.market.Now()

	var open []market.Asset
	for _, a := range e.portfolio.Assets() {
		if a.Instrument() == cash || a.IsZero() {
			continue
		}
		if _, err := e.market.PriceAsOf(a.Instrument(), now); err != nil {
			return nil, fmt.Errorf("close all: %w", err)
		}
		open = append(open, a)
	}

	var fills []broker.OrderFill
	for _, a := range open {
		fill, err := e.fillLocked(a.Instrument(), a, broker.Sell, reason)
		if err != nil {
			return fills, fmt.Errorf("close all: %w", err)
		}
		fills = append(fills, fill)
	}
	return fills, nil
}
