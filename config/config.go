package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/merchant/benchmark"
	"github.com/rustyeddy/merchant/broker"
	"github.com/rustyeddy/merchant/internal/logger"
	"github.com/rustyeddy/merchant/market"
	"github.com/rustyeddy/merchant/portfolio"
	"github.com/rustyeddy/merchant/strategy"
)

// Config represents a complete simulation run.
type Config struct {
	Portfolio   PortfolioConfig    `json:"portfolio" yaml:"portfolio"`
	Instruments []InstrumentConfig `json:"instruments" yaml:"instruments"`
	Simulation  SimulationConfig   `json:"simulation" yaml:"simulation"`
	Strategy    StrategyConfig     `json:"strategy" yaml:"strategy"`
	Benchmarks  []BenchmarkConfig  `json:"benchmarks,omitempty" yaml:"benchmarks,omitempty"`
	Journal     JournalConfig      `json:"journal" yaml:"journal"`
	Log         LogConfig          `json:"log" yaml:"log"`
}

// PortfolioConfig names the benchmark (cash) instrument and the starting holdings.
type PortfolioConfig struct {
	Benchmark string          `json:"benchmark" yaml:"benchmark"`
	Holdings  []HoldingConfig `json:"holdings" yaml:"holdings"`
}

// HoldingConfig is a starting asset. Quantity is a decimal string.
type HoldingConfig struct {
	Instrument string `json:"instrument" yaml:"instrument"`
	Quantity   string `json:"quantity" yaml:"quantity"`
}

// InstrumentConfig declares a tradable instrument. Precision may be omitted
// for ISO 4217 currencies.
type InstrumentConfig struct {
	Symbol    string `json:"symbol" yaml:"symbol"`
	Precision *int32 `json:"precision,omitempty" yaml:"precision,omitempty"`
}

// SimulationConfig contains the clock start and the price source.
type SimulationConfig struct {
	Start      string      `json:"start" yaml:"start"` // RFC3339
	PricesFile string      `json:"prices_file,omitempty" yaml:"prices_file,omitempty"`
	From       string      `json:"from,omitempty" yaml:"from,omitempty"`
	To         string      `json:"to,omitempty" yaml:"to,omitempty"`
	PriceSteps []PriceStep `json:"price_steps,omitempty" yaml:"price_steps,omitempty"`
	CloseEnd   bool        `json:"close_end" yaml:"close_end"`
}

// PriceStep represents a set of price updates after a delay.
type PriceStep struct {
	Delay  string            `json:"delay" yaml:"delay"` // e.g., "1h", "30m", "1s"
	Prices map[string]string `json:"prices" yaml:"prices"`
}

// ParseDuration converts the delay string to time.Duration
func (ps PriceStep) ParseDuration() (time.Duration, error) {
	if ps.Delay == "" {
		return 0, nil
	}
	return time.ParseDuration(ps.Delay)
}

// StrategyConfig contains strategy parameters.
type StrategyConfig struct {
	Name       string        `json:"name" yaml:"name"`
	Instrument string        `json:"instrument,omitempty" yaml:"instrument,omitempty"`
	Units      string        `json:"units,omitempty" yaml:"units,omitempty"`
	Fast       int           `json:"fast,omitempty" yaml:"fast,omitempty"`
	Slow       int           `json:"slow,omitempty" yaml:"slow,omitempty"`
	Orders     []OrderConfig `json:"orders,omitempty" yaml:"orders,omitempty"`
}

// OrderConfig is a scripted market order.
type OrderConfig struct {
	At         string `json:"at" yaml:"at"` // RFC3339
	Instrument string `json:"instrument" yaml:"instrument"`
	Units      string `json:"units" yaml:"units"`
}

// BenchmarkConfig binds a built-in benchmark. Every entry in Args is checked
// when the portfolio is built and read into the run report.
type BenchmarkConfig struct {
	Name string           `json:"name" yaml:"name"`
	Args []map[string]any `json:"args,omitempty" yaml:"args,omitempty"`
}

// JournalConfig contains journaling parameters.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	ClosedFile string `json:"closed_file,omitempty" yaml:"closed_file,omitempty"`
	ValuesFile string `json:"values_file,omitempty" yaml:"values_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	ReportFile string `json:"report_file,omitempty" yaml:"report_file,omitempty"`
}

type LogConfig struct {
	Level       string `json:"level" yaml:"level"`
	Development bool   `json:"development" yaml:"development"`
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration as YAML for .yaml/.yml paths and JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks that every section can be converted into run inputs.
func (c *Config) Validate() error {
	if c.Portfolio.Benchmark == "" {
		return fmt.Errorf("portfolio.benchmark is required")
	}
	reg, err := c.Registry()
	if err != nil {
		return err
	}
	if _, err := c.Assets(reg); err != nil {
		return err
	}
	start, err := c.Start()
	if err != nil {
		return err
	}
	if _, _, err := c.Window(); err != nil {
		return err
	}

	if c.Simulation.PricesFile == "" && len(c.Simulation.PriceSteps) == 0 {
		return fmt.Errorf("simulation needs prices_file or price_steps")
	}
	if c.Simulation.PricesFile != "" && len(c.Simulation.PriceSteps) > 0 {
		return fmt.Errorf("simulation.prices_file and simulation.price_steps are exclusive")
	}
	if _, err := c.Ticks(start, reg); err != nil {
		return err
	}

	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}
	params, err := c.StrategyParams(reg)
	if err != nil {
		return err
	}
	if _, err := strategy.ByName(c.Strategy.Name, params); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	if _, err := c.Registrations(); err != nil {
		return err
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.ClosedFile == "" || c.Journal.ValuesFile == "" {
			return fmt.Errorf("journal trades_file, closed_file and values_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Registry builds the instrument registry. The benchmark is registered as a
// currency when it is not declared.
func (c *Config) Registry() (market.Registry, error) {
	reg, err := market.NewRegistry()
	if err != nil {
		return nil, err
	}
	for i, ic := range c.Instruments {
		inst, err := ic.instrument()
		if err != nil {
			return nil, fmt.Errorf("instruments[%d]: %w", i, err)
		}
		if err := reg.Register(inst); err != nil {
			return nil, fmt.Errorf("instruments[%d]: %w", i, err)
		}
	}
	if _, err := reg.Lookup(c.Portfolio.Benchmark); err != nil {
		inst, err := market.Currency(c.Portfolio.Benchmark)
		if err != nil {
			return nil, fmt.Errorf("portfolio.benchmark: %w", err)
		}
		if err := reg.Register(inst); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (ic InstrumentConfig) instrument() (market.Instrument, error) {
	if ic.Precision == nil {
		return market.Currency(ic.Symbol)
	}
	return market.NewInstrument(ic.Symbol, *ic.Precision)
}

// Benchmark returns the benchmark instrument.
func (c *Config) Benchmark(reg market.Registry) (market.Instrument, error) {
	return reg.Lookup(c.Portfolio.Benchmark)
}

// Assets converts the starting holdings.
func (c *Config) Assets(reg market.Registry) ([]market.Asset, error) {
	out := make([]market.Asset, 0, len(c.Portfolio.Holdings))
	for i, h := range c.Portfolio.Holdings {
		inst, err := reg.Lookup(h.Instrument)
		if err != nil {
			return nil, fmt.Errorf("portfolio.holdings[%d]: %w", i, err)
		}
		q, err := decimal.NewFromString(strings.TrimSpace(h.Quantity))
		if err != nil {
			return nil, fmt.Errorf("portfolio.holdings[%d]: quantity %q: %w", i, h.Quantity, err)
		}
		if q.IsNegative() {
			return nil, fmt.Errorf("portfolio.holdings[%d]: quantity must not be negative", i)
		}
		out = append(out, market.NewAsset(inst, q))
	}
	return out, nil
}

// Start returns the simulation start time.
func (c *Config) Start() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, c.Simulation.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("simulation.start: %w", err)
	}
	return t, nil
}

// Window returns the optional [from, to) filter for the prices file.
func (c *Config) Window() (from, to time.Time, err error) {
	if c.Simulation.From != "" {
		if from, err = time.Parse(time.RFC3339, c.Simulation.From); err != nil {
			return from, to, fmt.Errorf("simulation.from: %w", err)
		}
	}
	if c.Simulation.To != "" {
		if to, err = time.Parse(time.RFC3339, c.Simulation.To); err != nil {
			return from, to, fmt.Errorf("simulation.to: %w", err)
		}
	}
	return from, to, nil
}

// Ticks converts the inline price steps. Each step happens Delay after the
// previous one, the first Delay after start.
func (c *Config) Ticks(start time.Time, reg market.Registry) ([]broker.Tick, error) {
	var out []broker.Tick
	at := start
	for i, step := range c.Simulation.PriceSteps {
		d, err := step.ParseDuration()
		if err != nil {
			return nil, fmt.Errorf("simulation.price_steps[%d]: %w", i, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("simulation.price_steps[%d]: negative delay", i)
		}
		at = at.Add(d)

		symbols := make([]string, 0, len(step.Prices))
		for s := range step.Prices {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)

		tick := broker.Tick{Time: at}
		for _, s := range symbols {
			if _, err := reg.Lookup(s); err != nil {
				return nil, fmt.Errorf("simulation.price_steps[%d]: %w", i, err)
			}
			px, err := decimal.NewFromString(strings.TrimSpace(step.Prices[s]))
			if err != nil {
				return nil, fmt.Errorf("simulation.price_steps[%d]: price of %s: %w", i, s, err)
			}
			tick.Prices = append(tick.Prices, broker.Price{Instrument: s, Price: px})
		}
		out = append(out, tick)
	}
	return out, nil
}

// StrategyParams converts the strategy section.
func (c *Config) StrategyParams(reg market.Registry) (strategy.Params, error) {
	s := c.Strategy
	p := strategy.Params{Instrument: s.Instrument, Fast: s.Fast, Slow: s.Slow}
	if s.Instrument != "" {
		if _, err := reg.Lookup(s.Instrument); err != nil {
			return p, fmt.Errorf("strategy.instrument: %w", err)
		}
	}
	if s.Units != "" {
		u, err := decimal.NewFromString(strings.TrimSpace(s.Units))
		if err != nil {
			return p, fmt.Errorf("strategy.units: %w", err)
		}
		p.Units = u
	}
	for i, o := range s.Orders {
		at, err := time.Parse(time.RFC3339, o.At)
		if err != nil {
			return p, fmt.Errorf("strategy.orders[%d].at: %w", i, err)
		}
		if _, err := reg.Lookup(o.Instrument); err != nil {
			return p, fmt.Errorf("strategy.orders[%d]: %w", i, err)
		}
		u, err := decimal.NewFromString(strings.TrimSpace(o.Units))
		if err != nil {
			return p, fmt.Errorf("strategy.orders[%d].units: %w", i, err)
		}
		p.Orders = append(p.Orders, strategy.ScriptedOrder{At: at, Instrument: o.Instrument, Units: u})
	}
	return p, nil
}

// Registrations resolves the configured benchmarks.
func (c *Config) Registrations() ([]portfolio.Registration, error) {
	var out []portfolio.Registration
	for i, bc := range c.Benchmarks {
		b, err := benchmark.ByName(bc.Name)
		if err != nil {
			return nil, fmt.Errorf("benchmarks[%d]: %w", i, err)
		}
		reg := portfolio.Registration{Benchmark: b}
		for _, a := range bc.Args {
			reg.Args = append(reg.Args, portfolio.Args(a))
		}
		out = append(out, reg)
	}
	return out, nil
}

func precision(p int32) *int32 { return &p }

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Portfolio: PortfolioConfig{
			Benchmark: "USD",
			Holdings:  []HoldingConfig{{Instrument: "USD", Quantity: "100000"}},
		},
		Instruments: []InstrumentConfig{
			{Symbol: "USD"},
			{Symbol: "AAPL", Precision: precision(0)},
			{Symbol: "BTC", Precision: precision(8)},
		},
		Simulation: SimulationConfig{
			Start: "2024-01-02T14:30:00Z",
			PriceSteps: []PriceStep{
				{Prices: map[string]string{"AAPL": "185.64", "BTC": "44950.10"}},
				{Delay: "1h", Prices: map[string]string{"AAPL": "184.25"}},
				{Delay: "1h", Prices: map[string]string{"AAPL": "186.10", "BTC": "45210.00"}},
				{Delay: "1h", Prices: map[string]string{"AAPL": "187.90"}},
				{Delay: "1h", Prices: map[string]string{"AAPL": "185.30", "BTC": "44800.55"}},
				{Delay: "1h", Prices: map[string]string{"AAPL": "183.75"}},
			},
			CloseEnd: true,
		},
		Strategy: StrategyConfig{
			Name:       "ma-cross",
			Instrument: "AAPL",
			Units:      "100",
			Fast:       2,
			Slow:       3,
		},
		Benchmarks: []BenchmarkConfig{
			{Name: benchmark.TotalReturnName},
			{Name: benchmark.MaxDrawdownName},
			{Name: benchmark.RealizedPLName, Args: []map[string]any{{"instrument": "AAPL"}}},
			{Name: benchmark.SharpeName, Args: []map[string]any{{"periods": 252}}},
		},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			ClosedFile: "./closed.csv",
			ValuesFile: "./values.csv",
		},
		Log: LogConfig{Level: "info"},
	}
}
