package strategy

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/merchant/broker"
	"github.com/rustyeddy/merchant/indicators"
)

// MACross trades one instrument on a fast/slow moving average crossover. A
// bull cross buys Units; a bear cross sells the whole holding.
type MACross struct {
	Instrument string
	Units      decimal.Decimal

	fast         indicators.Indicator
	slow         indicators.Indicator
	lastDiff     float64
	haveLastDiff bool
}

// NewMACross returns a simple moving average crossover.
func NewMACross(instrument string, fast, slow int, units decimal.Decimal) (*MACross, error) {
	return NewMovingAverageCross("sma", instrument, fast, slow, units)
}

// NewMovingAverageCross returns a crossover of the given moving average kind
// ("sma" or "ema").
func NewMovingAverageCross(kind, instrument string, fast, slow int, units decimal.Decimal) (*MACross, error) {
	if instrument == "" {
		return nil, fmt.Errorf("ma-cross: instrument is required")
	}
	if fast <= 0 || slow <= 0 || fast >= slow {
		return nil, fmt.Errorf("ma-cross: need 0 < fast < slow, got fast=%d slow=%d", fast, slow)
	}
	if !units.IsPositive() {
		return nil, fmt.Errorf("ma-cross: units must be positive")
	}
	f, err := indicators.New(kind, fast)
	if err != nil {
		return nil, fmt.Errorf("ma-cross: %w", err)
	}
	sl, err := indicators.New(kind, slow)
	if err != nil {
		return nil, fmt.Errorf("ma-cross: %w", err)
	}
	return &MACross{Instrument: instrument, Units: units, fast: f, slow: sl}, nil
}

// Name returns e.g. "MA(2)/MA(3)".
func (s *MACross) Name() string { return s.fast.Name() + "/" + s.slow.Name() }

func (s *MACross) OnTick(ctx context.Context, b broker.Broker, tick broker.Tick) error {
	px, ok := tick.Price(s.Instrument)
	if !ok {
		return nil
	}

	v := px.InexactFloat64()
	s.fast.Update(v)
	s.slow.Update(v)
	if !s.fast.Ready() || !s.slow.Ready() {
		return nil
	}
	diff := s.fast.Value() - s.slow.Value()

	if !s.haveLastDiff {
		s.lastDiff = diff
		s.haveLastDiff = true
		return nil
	}

	bullCross := diff > 0 && s.lastDiff <= 0
	bearCross := diff < 0 && s.lastDiff >= 0
	s.lastDiff = diff

	switch {
	case bullCross:
		_, err := b.CreateMarketOrder(ctx, broker.MarketOrderRequest{
			Instrument: s.Instrument,
			Units:      s.Units,
			Reason:     "BullCross",
		})
		return err
	case bearCross:
		return s.exit(ctx, b)
	}
	return nil
}

func (s *MACross) exit(ctx context.Context, b broker.Broker) error {
	held, err := b.Holdings(ctx)
	if err != nil {
		return err
	}
	for _, a := range held {
		if a.Instrument().Symbol != s.Instrument || !a.IsPositive() {
			continue
		}
		_, err := b.CreateMarketOrder(ctx, broker.MarketOrderRequest{
			Instrument: s.Instrument,
			Units:      a.Quantity().Neg(),
			Reason:     "BearCross",
		})
		return err
	}
	return nil
}
