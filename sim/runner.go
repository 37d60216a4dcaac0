package sim

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/merchant/internal/logger"
	"github.com/rustyeddy/merchant/market"
	"github.com/rustyeddy/merchant/strategy"
)

// RunnerOptions controls how the runner behaves.
type RunnerOptions struct {
	// If true, sell every non-cash holding after the last tick.
	// Close reason will be CloseReason (or "EndOfRun" if empty).
	CloseEnd    bool
	CloseReason string
}

// Runner drives an engine forward using a feed and strategy.
type Runner struct {
	Engine   *Engine
	Feed     Feed
	Strategy strategy.TickStrategy
	Options  RunnerOptions
	Log      *zap.SugaredLogger
}

// Result summarises a run.
type Result struct {
	Ticks  int
	Trades int
	Closed int
	Wins   int
	Losses int

	Start time.Time
	End   time.Time

	StartValue market.Valuation
	EndValue   market.Valuation
}

// Run executes the loop:
//  1. read next tick
//  2. engine.UpdatePrice(tick)
//  3. strategy.OnTick(ctx, engine, tick)
//
// Cancelling ctx stops the run between ticks.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.Engine == nil {
		return Result{}, fmt.Errorf("run: Engine is required")
	}
	if r.Feed == nil {
		return Result{}, fmt.Errorf("run: Feed is required")
	}
	if r.Strategy == nil {
		return Result{}, fmt.Errorf("run: Strategy is required")
	}
	defer r.Feed.Close()

	log := r.Log
	if log == nil {
		log = logger.Nop()
	}

	p := r.Engine.Portfolio()
	res := Result{Start: r.Engine.Market().Now()}
	if hist := p.ValueHistory(); len(hist) > 0 {
		res.StartValue = hist[0].Value
	}

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		tick, ok, err := r.Feed.Next()
		if err != nil {
			return res, fmt.Errorf("run: read feed: %w", err)
		}
		if !ok {
			break
		}

		if err := r.Engine.UpdatePrice(tick); err != nil {
			return res, err
		}
		res.Ticks++
		res.End = tick.Time

		if err := r.Strategy.OnTick(ctx, r.Engine, tick); err != nil {
			return res, fmt.Errorf("run: strategy at %s: %w", tick.Time.Format(time.RFC3339), err)
		}
	}

	if r.Options.CloseEnd {
		reason := r.Options.CloseReason
		if reason == "" {
			reason = "EndOfRun"
		}
		fills, err := r.Engine.CloseAll(ctx, reason)
		if err != nil {
			return res, err
		}
		log.Infow("closed holdings at end of run", "fills", len(fills))
	}

	end, err := p.Value(r.Engine.Market().Now())
	if err != nil {
		return res, fmt.Errorf("run: final value: %w", err)
	}
	res.EndValue = end

	res.Trades = len(p.Trades())
	for _, c := range p.ClosedPositions() {
		res.Closed++
		pl := c.PL()
		switch {
		case pl.IsPositive():
			res.Wins++
		case pl.IsNegative():
			res.Losses++
		}
	}

	log.Infow("run complete",
		"ticks", res.Ticks,
		"trades", res.Trades,
		"closed", res.Closed,
		"start_value", res.StartValue.String(),
		"end_value", res.EndValue.String(),
	)
	return res, nil
}
