// Package strategy holds the trading strategies a simulation run can use.
package strategy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/merchant/broker"
)

// TickStrategy is called once per tick, after the tick's prices are in the
// market and the portfolio has been revalued.
type TickStrategy interface {
	OnTick(ctx context.Context, b broker.Broker, tick broker.Tick) error
}

// Params configures a strategy built by ByName.
type Params struct {
	Instrument string
	Units      decimal.Decimal
	Fast       int
	Slow       int
	Orders     []ScriptedOrder
}

// Factory builds a strategy from params.
type Factory func(Params) (TickStrategy, error)

var registry = map[string]Factory{
	"noop": func(Params) (TickStrategy, error) { return Noop{}, nil },
	"open-once": func(p Params) (TickStrategy, error) {
		return &OpenOnce{Instrument: p.Instrument, Units: p.Units}, nil
	},
	"scripted": func(p Params) (TickStrategy, error) {
		return NewScripted(p.Orders...), nil
	},
	"ma-cross": func(p Params) (TickStrategy, error) {
		return NewMACross(p.Instrument, p.Fast, p.Slow, p.Units)
	},
	"ema-cross": func(p Params) (TickStrategy, error) {
		return NewMovingAverageCross("ema", p.Instrument, p.Fast, p.Slow, p.Units)
	},
}

var aliases = map[string]string{
	"none":     "noop",
	"macross":  "ma-cross",
	"emacross": "ema-cross",
}

// Register adds a strategy factory under name, replacing any previous one.
func Register(name string, f Factory) {
	registry[strings.ToLower(name)] = f
}

// Names returns the registered strategy names, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// ByName builds the named strategy.
func ByName(name string, p Params) (TickStrategy, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	f, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return f(p)
}

// Noop does nothing.
type Noop struct{}

func (Noop) OnTick(context.Context, broker.Broker, broker.Tick) error { return nil }

// OpenOnce places one market order on the first tick that prices Instrument.
type OpenOnce struct {
	Instrument string
	Units      decimal.Decimal

	opened bool
}

func (s *OpenOnce) OnTick(ctx context.Context, b broker.Broker, tick broker.Tick) error {
	if s.opened {
		return nil
	}
	if _, ok := tick.Price(s.Instrument); !ok {
		return nil
	}
	if s.Units.IsZero() {
		return fmt.Errorf("open-once: units must be non-zero")
	}

	if _, err := b.CreateMarketOrder(ctx, broker.MarketOrderRequest{
		Instrument: s.Instrument,
		Units:      s.Units,
		Reason:     "OpenOnce",
	}); err != nil {
		return err
	}
	s.opened = true
	return nil
}

// ScriptedOrder is a market order placed on the first tick at or after At.
type ScriptedOrder struct {
	At         time.Time
	Instrument string
	Units      decimal.Decimal
}

// Scripted places a fixed list of orders at fixed times.
type Scripted struct {
	orders []ScriptedOrder
	next   int
}

// NewScripted returns a strategy that places orders in time order.
func NewScripted(orders ...ScriptedOrder) *Scripted {
	sorted := append([]ScriptedOrder(nil), orders...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At.Before(sorted[j].At) })
	return &Scripted{orders: sorted}
}

// Pending returns the number of orders not yet placed.
func (s *Scripted) Pending() int { return len(s.orders) - s.next }

func (s *Scripted) OnTick(ctx context.Context, b broker.Broker, tick broker.Tick) error {
	for s.next < len(s.orders) && !s.orders[s.next].At.After(tick.Time) {
		o := s.orders[s.next]
		s.next++
		if _, err := b.CreateMarketOrder(ctx, broker.MarketOrderRequest{
			Instrument: o.Instrument,
			Units:      o.Units,
			Reason:     "Scripted",
		}); err != nil {
			return fmt.Errorf("scripted order %d: %w", s.next, err)
		}
	}
	return nil
}
