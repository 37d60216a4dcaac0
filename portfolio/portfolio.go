package portfolio

import (
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/merchant/market"
)

// Market is what a portfolio needs from the simulated market: the current
// time, asset valuation, and tick notification.
type Market interface {
	market.Pricer
	Now() time.Time
	Attach(h market.Hook) (detach func())
}

// Config holds everything needed to build a Portfolio.
type Config struct {
	Market     Market
	Benchmark  market.Instrument
	Assets     []market.Asset
	Benchmarks []Registration
}

// ValuePoint is the portfolio value at a point in time.
type ValuePoint struct {
	Time  time.Time
	Value market.Valuation
}

// Portfolio is a trading portfolio driven by a market clock. It owns the
// holdings, the open lots, the trade, closed-position and value histories, and
// the benchmarks bound to it. Holdings and lots change only through
// ExecuteTrade.
type Portfolio struct {
	mu        sync.Mutex
	market    Market
	benchmark market.Instrument
	holdings  *Holdings
	positions *OpenPositionStack
	trades    []ValuedTrade
	closed    []ClosedPosition
	values    []ValuePoint

	names  []string
	bound  map[string]BoundBenchmark
	detach func()
}

// New builds a portfolio from starting assets. Non-benchmark starting assets
// are valued at the market's current time and opened as lots. Declared
// benchmark arguments are checked before the portfolio is returned.
func New(cfg Config) (*Portfolio, error) {
	if cfg.Market == nil {
		return nil, fmt.Errorf("new portfolio: market is required")
	}
	if cfg.Benchmark.Symbol == "" {
		return nil, fmt.Errorf("new portfolio: benchmark instrument is required")
	}

	holdings, err := NewHoldings(cfg.Assets...)
	if err != nil {
		return nil, fmt.Errorf("new portfolio: %w", err)
	}

	p := &Portfolio{
		market:    cfg.Market,
		benchmark: cfg.Benchmark,
		holdings:  holdings,
		positions: NewOpenPositionStack(cfg.Benchmark),
		bound:     make(map[string]BoundBenchmark),
	}

	now := cfg.Market.Now()
	for _, a := range holdings.Assets() {
		if a.Instrument() == cfg.Benchmark {
			continue
		}
		opening := Trade{ID: "open-" + a.Instrument().Symbol, Time: now, Sell: market.Zero(cfg.Benchmark), Buy: a}
		vt, err := ValueTrade(opening, cfg.Market, cfg.Benchmark)
		if err != nil {
			return nil, fmt.Errorf("new portfolio: %w", err)
		}
		p.positions.push(Lot{Asset: a, Open: vt})
	}

	if _, err := p.Snapshot(now); err != nil {
		return nil, fmt.Errorf("new portfolio: %w", err)
	}

	for _, reg := range cfg.Benchmarks {
		if err := p.bind(reg); err != nil {
			return nil, err
		}
	}

	p.detach = cfg.Market.Attach(func(time.Time) { p.invalidate() })
	return p, nil
}

func (p *Portfolio) bind(reg Registration) error {
	if reg.Benchmark == nil {
		return fmt.Errorf("new portfolio: nil benchmark")
	}
	name := reg.Benchmark.Name()
	if _, dup := p.bound[name]; dup {
		return fmt.Errorf("new portfolio: benchmark %s registered twice", name)
	}
	b := reg.Benchmark.Bind(p)
	for _, args := range reg.Args {
		if err := b.CheckArgs(args); err != nil {
			return &InvalidBenchmarkArgumentsError{Benchmark: name, Args: args, Err: err}
		}
	}
	p.bound[name] = b
	p.names = append(p.names, name)
	return nil
}

// Close detaches the portfolio from the market clock.
func (p *Portfolio) Close() {
	if p.detach != nil {
		p.detach()
		p.detach = nil
	}
}

func (p *Portfolio) invalidate() {
	for _, b := range p.bound {
		b.InvalidateCache()
	}
}

// ExecuteTrade applies a valued trade as one transaction: every precondition
// is checked before anything changes, so a failing trade leaves holdings,
// lots and histories untouched. It returns the positions the trade closed.
func (p *Portfolio) ExecuteTrade(trade ValuedTrade) ([]ClosedPosition, error) {
	closed, err := p.execute(trade)
	if err != nil {
		return nil, err
	}
	p.invalidate()
	return closed, nil
}

func (p *Portfolio) execute(trade ValuedTrade) ([]ClosedPosition, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// holdings and lots only ever carry quantities at instrument precision
	trade.Sell = trade.Sell.Round()
	trade.Buy = trade.Buy.Round()

	if trade.Sell.Instrument() == trade.Buy.Instrument() {
		return nil, fmt.Errorf("execute trade %s: %w", trade.ID, ErrSameInstrument)
	}
	if trade.Buy.IsNegative() || trade.Sell.IsNegative() {
		return nil, fmt.Errorf("execute trade %s: %w", trade.ID, ErrNegativeQuantity)
	}
	if trade.Value.Instrument() != p.benchmark {
		return nil, fmt.Errorf("execute trade %s: %w", trade.ID,
			&market.InstrumentMismatchError{Op: "value", Left: p.benchmark, Right: trade.Value.Instrument()})
	}
	if err := p.holdings.CanRemove(trade.Sell); err != nil {
		return nil, fmt.Errorf("execute trade %s: %w", trade.ID, err)
	}
	if err := p.positions.Check(trade); err != nil {
		return nil, fmt.Errorf("execute trade %s: %w", trade.ID, err)
	}

	if err := p.holdings.Remove(trade.Sell); err != nil {
		return nil, fmt.Errorf("execute trade %s: %w", trade.ID, err)
	}
	if err := p.holdings.Add(trade.Buy); err != nil {
		return nil, fmt.Errorf("execute trade %s: %w", trade.ID, err)
	}
	closed, err := p.positions.HandleTrade(trade)
	if err != nil {
		return nil, fmt.Errorf("execute trade %s: %w", trade.ID, err)
	}

	p.trades = append(p.trades, trade)
	p.closed = append(p.closed, closed...)
	return closed, nil
}

// Value sums the value of every holding at time at.
func (p *Portfolio) Value(at time.Time) (market.Valuation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value(at)
}

func (p *Portfolio) value(at time.Time) (market.Valuation, error) {
	total := market.NewValuation(market.Zero(p.benchmark))
	for _, a := range p.holdings.Assets() {
		v, err := p.market.Value(a, at)
		if err != nil {
			return market.Valuation{}, err
		}
		if total, err = total.Add(v); err != nil {
			return market.Valuation{}, err
		}
	}
	return total, nil
}

// Snapshot values the portfolio at time at and appends it to the value
// history. Bound benchmarks are invalidated.
func (p *Portfolio) Snapshot(at time.Time) (market.Valuation, error) {
	v, err := p.snapshot(at)
	if err != nil {
		return market.Valuation{}, err
	}
	p.invalidate()
	return v, nil
}

func (p *Portfolio) snapshot(at time.Time) (market.Valuation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, err := p.value(at)
	if err != nil {
		return market.Valuation{}, fmt.Errorf("snapshot: %w", err)
	}
	p.values = append(p.values, ValuePoint{Time: at, Value: v})
	return v, nil
}

// Benchmark reads a bound benchmark with args.
func (p *Portfolio) Benchmark(name string, args Args) (float64, error) {
	b, ok := p.bound[name]
	if !ok {
		return 0, fmt.Errorf("benchmark %s: %w", name, ErrUnknownBenchmark)
	}
	if err := b.CheckArgs(args); err != nil {
		return 0, &InvalidBenchmarkArgumentsError{Benchmark: name, Args: args, Err: err}
	}
	return b.Value(args)
}

// Benchmarks returns the bound benchmark names in registration order.
func (p *Portfolio) Benchmarks() []string { return append([]string(nil), p.names...) }

func (p *Portfolio) Market() Market                         { return p.market }
func (p *Portfolio) BenchmarkInstrument() market.Instrument { return p.benchmark }

// Get returns the held asset of inst, zero if not held.
func (p *Portfolio) Get(inst market.Instrument) market.Asset {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.holdings.Get(inst)
}

func (p *Portfolio) Contains(inst market.Instrument) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.holdings.Contains(inst)
}

func (p *Portfolio) Assets() []market.Asset {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.holdings.Assets()
}

// OpenLots returns the open lots of inst, oldest first.
func (p *Portfolio) OpenLots(inst market.Instrument) []Lot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positions.Open(inst)
}

// Trades returns a copy of the trade history.
func (p *Portfolio) Trades() []ValuedTrade {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ValuedTrade(nil), p.trades...)
}

// ClosedPositions returns a copy of the closed-position history.
func (p *Portfolio) ClosedPositions() []ClosedPosition {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ClosedPosition(nil), p.closed...)
}

// ValueHistory returns a copy of the value history.
func (p *Portfolio) ValueHistory() []ValuePoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ValuePoint(nil), p.values...)
}
