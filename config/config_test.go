package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/merchant/market"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, "USD", cfg.Portfolio.Benchmark)
	assert.Equal(t, "ma-cross", cfg.Strategy.Name)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:   "missing benchmark",
			mutate: func(c *Config) { c.Portfolio.Benchmark = "" },
			errMsg: "portfolio.benchmark is required",
		},
		{
			name:   "benchmark not a currency",
			mutate: func(c *Config) { c.Portfolio.Benchmark = "GOLD" },
			errMsg: "unknown currency",
		},
		{
			name: "unknown holding",
			mutate: func(c *Config) {
				c.Portfolio.Holdings = append(c.Portfolio.Holdings, HoldingConfig{Instrument: "TSLA", Quantity: "1"})
			},
			errMsg: "unknown instrument TSLA",
		},
		{
			name:   "negative holding",
			mutate: func(c *Config) { c.Portfolio.Holdings[0].Quantity = "-5" },
			errMsg: "quantity must not be negative",
		},
		{
			name:   "bad holding quantity",
			mutate: func(c *Config) { c.Portfolio.Holdings[0].Quantity = "lots" },
			errMsg: "portfolio.holdings[0]: quantity",
		},
		{
			name:   "negative precision",
			mutate: func(c *Config) { c.Instruments[1].Precision = precision(-1) },
			errMsg: "precision must be non-negative",
		},
		{
			name:   "bad start",
			mutate: func(c *Config) { c.Simulation.Start = "yesterday" },
			errMsg: "simulation.start",
		},
		{
			name:   "no prices",
			mutate: func(c *Config) { c.Simulation.PriceSteps = nil },
			errMsg: "simulation needs prices_file or price_steps",
		},
		{
			name:   "both price sources",
			mutate: func(c *Config) { c.Simulation.PricesFile = "prices.csv" },
			errMsg: "exclusive",
		},
		{
			name:   "bad delay",
			mutate: func(c *Config) { c.Simulation.PriceSteps[1].Delay = "soon" },
			errMsg: "simulation.price_steps[1]",
		},
		{
			name:   "negative delay",
			mutate: func(c *Config) { c.Simulation.PriceSteps[1].Delay = "-1h" },
			errMsg: "negative delay",
		},
		{
			name:   "unknown strategy",
			mutate: func(c *Config) { c.Strategy.Name = "martingale" },
			errMsg: "unknown strategy",
		},
		{
			name:   "strategy rejects params",
			mutate: func(c *Config) { c.Strategy.Fast = 5 },
			errMsg: "strategy:",
		},
		{
			name: "bad scripted order",
			mutate: func(c *Config) {
				c.Strategy = StrategyConfig{Name: "scripted", Orders: []OrderConfig{{At: "noon", Instrument: "AAPL", Units: "1"}}}
			},
			errMsg: "strategy.orders[0].at",
		},
		{
			name: "unknown benchmark",
			mutate: func(c *Config) {
				c.Benchmarks = append(c.Benchmarks, BenchmarkConfig{Name: "alpha"})
			},
			errMsg: "unknown benchmark",
		},
		{
			name:   "csv journal without files",
			mutate: func(c *Config) { c.Journal.ValuesFile = "" },
			errMsg: "required for CSV type",
		},
		{
			name:   "sqlite journal without path",
			mutate: func(c *Config) { c.Journal = JournalConfig{Type: "sqlite"} },
			errMsg: "db_path required",
		},
		{
			name:   "invalid journal type",
			mutate: func(c *Config) { c.Journal.Type = "kafka" },
			errMsg: "journal.type must be",
		},
		{
			name:   "invalid log level",
			mutate: func(c *Config) { c.Log.Level = "loud" },
			errMsg: "log.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRegistry(t *testing.T) {
	cfg := Default()
	cfg.Instruments = []InstrumentConfig{{Symbol: "AAPL", Precision: precision(0)}}

	reg, err := cfg.Registry()
	require.NoError(t, err)

	usd, err := reg.Lookup("USD")
	require.NoError(t, err)
	assert.Equal(t, market.Instrument{Symbol: "USD", Precision: 2}, usd)
	assert.Equal(t, []string{"AAPL", "USD"}, reg.Symbols())

	cfg.Instruments = append(cfg.Instruments, InstrumentConfig{Symbol: "USD", Precision: precision(4)})
	_, err = cfg.Registry()
	assert.Error(t, err)
}

func TestTicks(t *testing.T) {
	cfg := Default()
	reg, err := cfg.Registry()
	require.NoError(t, err)
	start, err := cfg.Start()
	require.NoError(t, err)

	ticks, err := cfg.Ticks(start, reg)
	require.NoError(t, err)
	require.Len(t, ticks, len(cfg.Simulation.PriceSteps))

	assert.Equal(t, start, ticks[0].Time)
	assert.Equal(t, start.Add(5*time.Hour), ticks[5].Time)

	require.Len(t, ticks[0].Prices, 2)
	assert.Equal(t, "AAPL", ticks[0].Prices[0].Instrument)
	assert.Equal(t, "BTC", ticks[0].Prices[1].Instrument)
	assert.Equal(t, "44950.1", ticks[0].Prices[1].Price.String())
}

func TestStrategyParamsAndRegistrations(t *testing.T) {
	cfg := Default()
	cfg.Strategy = StrategyConfig{
		Name: "scripted",
		Orders: []OrderConfig{
			{At: "2024-01-02T15:30:00Z", Instrument: "AAPL", Units: "10"},
			{At: "2024-01-02T17:30:00Z", Instrument: "AAPL", Units: "-10"},
		},
	}
	require.NoError(t, cfg.Validate())

	reg, err := cfg.Registry()
	require.NoError(t, err)
	p, err := cfg.StrategyParams(reg)
	require.NoError(t, err)
	require.Len(t, p.Orders, 2)
	assert.True(t, p.Orders[1].Units.IsNegative())

	regs, err := cfg.Registrations()
	require.NoError(t, err)
	require.Len(t, regs, len(cfg.Benchmarks))
	assert.Equal(t, "realized-pl", regs[2].Benchmark.Name())
	assert.Equal(t, "AAPL", regs[2].Args[0]["instrument"])
}

func TestSaveAndLoad(t *testing.T) {
	for _, ext := range []string{".yaml", ".json"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "merchant"+ext)
			cfg := Default()
			require.NoError(t, cfg.SaveToFile(path))

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg.Portfolio, loaded.Portfolio)
			assert.Equal(t, cfg.Simulation, loaded.Simulation)
			assert.Equal(t, cfg.Journal, loaded.Journal)
			assert.Len(t, loaded.Benchmarks, len(cfg.Benchmarks))
		})
	}
}

func TestLoadFromFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	data := `
portfolio:
  benchmark: EUR
  holdings:
    - instrument: EUR
      quantity: "2500.50"
instruments:
  - symbol: ETH
    precision: 8
simulation:
  start: "2024-06-01T00:00:00Z"
  prices_file: prices.csv
  close_end: true
strategy:
  name: open-once
  instrument: ETH
  units: "0.5"
benchmarks:
  - name: sharpe
    args:
      - periods: 365
        risk_free: 0.0001
journal:
  type: sqlite
  db_path: run.db
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "EUR", cfg.Portfolio.Benchmark)
	assert.Equal(t, "prices.csv", cfg.Simulation.PricesFile)
	assert.Equal(t, 365, cfg.Benchmarks[0].Args[0]["periods"])

	reg, err := cfg.Registry()
	require.NoError(t, err)
	assets, err := cfg.Assets(reg)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "2500.50 EUR", assets[0].String())
}

func TestLoadFromFileErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("portfolio: ["), 0644))
	_, err = LoadFromFile(path)
	assert.Error(t, err)

	path = filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0644))
	_, err = LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
