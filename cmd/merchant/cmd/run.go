package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/merchant/benchmark"
	"github.com/rustyeddy/merchant/config"
	"github.com/rustyeddy/merchant/internal/id"
	"github.com/rustyeddy/merchant/journal"
	"github.com/rustyeddy/merchant/market"
	"github.com/rustyeddy/merchant/portfolio"
	"github.com/rustyeddy/merchant/sim"
	"github.com/rustyeddy/merchant/strategy"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation from a config file",
	Long: `Run a portfolio simulation using settings from a configuration file.

The config file specifies starting holdings, instruments, the price source,
the strategy, benchmarks and where to journal results.

Example:
  merchant run -f simulation.yaml
  merchant run -f simulation.yaml --report run.org`,
	RunE: runRun,
}

var (
	runConfigPath string
	runReportPath string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "file", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().StringVarP(&runReportPath, "report", "r", "", "write an Org-mode run report (overrides journal.report_file)")
	runCmd.MarkFlagRequired("file")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Running simulation with config: %s\n", runConfigPath)
	fmt.Fprintf(out, "  Benchmark: %s\n", cfg.Portfolio.Benchmark)
	fmt.Fprintf(out, "  Strategy: %s\n\n", cfg.Strategy.Name)

	reportPath := cfg.Journal.ReportFile
	if runReportPath != "" {
		reportPath = runReportPath
	}
	rep, err := runSimulation(ctx, cfg, log)
	if err != nil {
		return err
	}

	printReport(out, rep)
	switch cfg.Journal.Type {
	case "csv":
		fmt.Fprintf(out, "\nResults saved to:\n  - %s\n  - %s\n  - %s\n",
			cfg.Journal.TradesFile, cfg.Journal.ClosedFile, cfg.Journal.ValuesFile)
	case "sqlite":
		fmt.Fprintf(out, "\nResults saved to: %s\n", cfg.Journal.DBPath)
	}
	if reportPath != "" {
		if err := rep.WriteOrgFile(reportPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "Report written to: %s\n", reportPath)
	}
	return nil
}

// runSimulation builds the market, portfolio, engine and strategy described
// by cfg, runs the feed to completion and returns the run report.
func runSimulation(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (rep journal.Report, err error) {
	reg, err := cfg.Registry()
	if err != nil {
		return rep, err
	}
	bench, err := cfg.Benchmark(reg)
	if err != nil {
		return rep, err
	}
	assets, err := cfg.Assets(reg)
	if err != nil {
		return rep, err
	}
	start, err := cfg.Start()
	if err != nil {
		return rep, err
	}
	regs, err := cfg.Registrations()
	if err != nil {
		return rep, err
	}
	params, err := cfg.StrategyParams(reg)
	if err != nil {
		return rep, err
	}
	strat, err := strategy.ByName(cfg.Strategy.Name, params)
	if err != nil {
		return rep, err
	}

	feed, dataset, err := openFeed(cfg, start, reg)
	if err != nil {
		return rep, err
	}

	m := market.NewSimulation(start, bench)

	// starting holdings are valued at start, so a first tick at start
	// primes the market before the portfolio is built
	first, ok, feed, err := sim.PeekFeed(feed)
	if err != nil {
		feed.Close()
		return rep, fmt.Errorf("read feed: %w", err)
	}
	primed := ok && first.Time.Equal(start)
	if primed {
		for _, px := range first.Prices {
			inst, err := reg.Lookup(px.Instrument)
			if err != nil {
				feed.Close()
				return rep, err
			}
			if err := m.Set(market.Quote{Instrument: inst, Price: px.Price, Time: start}); err != nil {
				feed.Close()
				return rep, err
			}
		}
	}

	p, err := portfolio.New(portfolio.Config{
		Market:     m,
		Benchmark:  bench,
		Assets:     assets,
		Benchmarks: regs,
	})
	if err != nil {
		feed.Close()
		return rep, fmt.Errorf("build portfolio: %w", err)
	}
	defer p.Close()

	j, err := openJournal(cfg.Journal)
	if err != nil {
		feed.Close()
		return rep, fmt.Errorf("create journal: %w", err)
	}
	defer func() {
		if cerr := j.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close journal: %w", cerr)
		}
	}()

	// a primed market journals its first value on the first tick
	if !primed {
		for _, v := range p.ValueHistory() {
			if err := j.RecordValue(journal.NewValueRecord(v)); err != nil {
				feed.Close()
				return rep, err
			}
		}
	}

	engine := sim.NewEngine(m, reg, p, j)
	engine.SetLogger(log.Named("engine"))

	runner := &sim.Runner{
		Engine:   engine,
		Feed:     feed,
		Strategy: strat,
		Options:  sim.RunnerOptions{CloseEnd: cfg.Simulation.CloseEnd},
		Log:      log.Named("runner"),
	}
	res, err := runner.Run(ctx)
	if err != nil {
		return rep, err
	}

	return buildReport(cfg, dataset, res, p)
}

func openFeed(cfg *config.Config, start time.Time, reg market.Registry) (sim.Feed, string, error) {
	if cfg.Simulation.PricesFile != "" {
		from, to, err := cfg.Window()
		if err != nil {
			return nil, "", err
		}
		f, err := sim.NewCSVFeed(cfg.Simulation.PricesFile, from, to)
		if err != nil {
			return nil, "", err
		}
		return f, cfg.Simulation.PricesFile, nil
	}
	ticks, err := cfg.Ticks(start, reg)
	if err != nil {
		return nil, "", err
	}
	return sim.NewSliceFeed(ticks...), "price_steps", nil
}

func openJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "csv":
		return journal.NewCSV(jc.TradesFile, jc.ClosedFile, jc.ValuesFile)
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	case "", "none":
		return journal.Discard{}, nil
	}
	return nil, errors.New("journal.type must be 'none', 'csv' or 'sqlite'")
}

func buildReport(cfg *config.Config, dataset string, res sim.Result, p *portfolio.Portfolio) (journal.Report, error) {
	closed := make([]journal.ClosedRecord, 0, res.Closed)
	for _, c := range p.ClosedPositions() {
		closed = append(closed, journal.NewClosedRecord(c))
	}

	rep := journal.Report{
		RunID:      id.New(),
		Created:    time.Now().UTC(),
		Strategy:   cfg.Strategy.Name,
		Dataset:    dataset,
		Benchmark:  p.BenchmarkInstrument().Symbol,
		Precision:  p.BenchmarkInstrument().Precision,
		Start:      res.Start,
		End:        res.End,
		Ticks:      res.Ticks,
		Trades:     res.Trades,
		Summary:    journal.Summarize(closed),
		StartValue: res.StartValue.Quantity(),
		EndValue:   res.EndValue.Quantity(),
	}

	for _, bc := range cfg.Benchmarks {
		sets := make([]portfolio.Args, 0, len(bc.Args)+1)
		for _, a := range bc.Args {
			sets = append(sets, portfolio.Args(a))
		}
		if len(sets) == 0 {
			sets = append(sets, nil)
		}
		b, err := benchmark.ByName(bc.Name)
		if err != nil {
			return rep, err
		}
		name := b.Name()
		for _, args := range sets {
			v, err := p.Benchmark(name, args)
			if err != nil {
				return rep, err
			}
			rep.Metrics = append(rep.Metrics, journal.Metric{Name: name, Args: args.Key(), Value: v})
		}
	}
	if cfg.Simulation.CloseEnd {
		rep.Notes = append(rep.Notes, "All holdings were closed at the end of the run.")
	}
	return rep, nil
}

func printReport(w io.Writer, rep journal.Report) {
	fmt.Fprintf(w, "Final Results:\n")
	fmt.Fprintf(w, "  Ticks: %d\n", rep.Ticks)
	fmt.Fprintf(w, "  Trades: %d\n", rep.Trades)
	fmt.Fprintf(w, "  Closed positions: %d (wins %d, losses %d)\n", rep.Summary.Closed, rep.Summary.Wins, rep.Summary.Losses)
	fmt.Fprintf(w, "  Start value: %s\n", rep.Amount(rep.StartValue))
	fmt.Fprintf(w, "  End value: %s\n", rep.Amount(rep.EndValue))
	fmt.Fprintf(w, "  Realized P/L: %s\n", rep.Amount(rep.Summary.RealizedPL))
	fmt.Fprintf(w, "  Return: %.2f%%\n", rep.ReturnPct())
	for _, m := range rep.Metrics {
		if m.Args != "" {
			fmt.Fprintf(w, "  %s(%s): %.6f\n", m.Name, m.Args, m.Value)
			continue
		}
		fmt.Fprintf(w, "  %s: %.6f\n", m.Name, m.Value)
	}
}
