package portfolio

import (
	"sort"

	"github.com/rustyeddy/merchant/market"
)

// Lot is the still-open part of a quantity bought in one trade.
type Lot struct {
	Asset market.Asset
	Open  ValuedTrade
}

// OpenPositionStack tracks open lots per instrument and matches sales
// against them last-in, first-out. The benchmark instrument is never tracked.
type OpenPositionStack struct {
	benchmark market.Instrument
	lots      map[market.Instrument][]Lot
}

func NewOpenPositionStack(benchmark market.Instrument) *OpenPositionStack {
	return &OpenPositionStack{
		benchmark: benchmark,
		lots:      make(map[market.Instrument][]Lot),
	}
}

// stack returns the lots of inst, inserting an empty stack on first use.
func (s *OpenPositionStack) stack(inst market.Instrument) []Lot {
	lots, ok := s.lots[inst]
	if !ok {
		lots = []Lot{}
		s.lots[inst] = lots
	}
	return lots
}

// Open returns a copy of the open lots of inst, oldest first.
func (s *OpenPositionStack) Open(inst market.Instrument) []Lot {
	return append([]Lot(nil), s.lots[inst]...)
}

// Remaining returns the total open quantity of inst.
func (s *OpenPositionStack) Remaining(inst market.Instrument) market.Asset {
	total := market.Zero(inst)
	for _, l := range s.lots[inst] {
		// lots of inst always share its instrument
		total, _ = total.Add(l.Asset)
	}
	return total
}

// Instruments returns the instruments with at least one open lot, by symbol.
func (s *OpenPositionStack) Instruments() []market.Instrument {
	var out []market.Instrument
	for inst, lots := range s.lots {
		if len(lots) > 0 {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Check reports whether HandleTrade(trade) would succeed, without mutating.
func (s *OpenPositionStack) Check(trade ValuedTrade) error {
	if trade.Value.Instrument() != s.benchmark {
		return &market.InstrumentMismatchError{Op: "value", Left: s.benchmark, Right: trade.Value.Instrument()}
	}
	sold := trade.Sell.Round()
	if sold.Instrument() == s.benchmark || !sold.IsPositive() {
		return nil
	}
	open := s.Remaining(sold.Instrument())
	short, err := open.LessThan(sold)
	if err != nil {
		return err
	}
	if short {
		return &InsufficientLotsError{Requested: sold, Open: open}
	}
	return nil
}

// HandleTrade opens a lot for the bought side and closes lots for the sold
// side, most recent first. Both sides are rounded to instrument precision
// first. The trade must be valued in the benchmark instrument. A sale that open lots cannot cover fails with
// *InsufficientLotsError and leaves the stack unchanged.
func (s *OpenPositionStack) HandleTrade(trade ValuedTrade) ([]ClosedPosition, error) {
	if err := s.Check(trade); err != nil {
		return nil, err
	}
	trade.Sell = trade.Sell.Round()
	trade.Buy = trade.Buy.Round()
	if bought := trade.Buy; bought.Instrument() != s.benchmark && bought.IsPositive() {
		s.push(Lot{Asset: bought, Open: trade})
	}
	sold := trade.Sell
	if sold.Instrument() == s.benchmark || !sold.IsPositive() {
		return nil, nil
	}
	return s.pop(trade)
}

func (s *OpenPositionStack) push(l Lot) {
	inst := l.Asset.Instrument()
	s.lots[inst] = append(s.stack(inst), l)
}

func (s *OpenPositionStack) pop(trade ValuedTrade) ([]ClosedPosition, error) {
	inst := trade.Sell.Instrument()
	// work on a copy so a failure leaves the stack untouched
	lots := append([]Lot(nil), s.stack(inst)...)
	remaining := trade.Sell

	var closed []ClosedPosition
	for remaining.IsPositive() {
		if len(lots) == 0 {
			return nil, &InsufficientLotsError{Requested: trade.Sell, Open: s.Remaining(inst)}
		}
		top := lots[len(lots)-1]
		lots = lots[:len(lots)-1]

		partial, err := top.Asset.GreaterThan(remaining)
		if err != nil {
			return nil, err
		}
		if partial {
			rest, err := top.Asset.Sub(remaining)
			if err != nil {
				return nil, err
			}
			if !rest.IsZero() {
				lots = append(lots, Lot{Asset: rest, Open: top.Open})
			}
			closed = append(closed, ClosedPosition{Amount: remaining, Open: top.Open, Close: trade})
			break
		}

		// exact match or smaller lot: fully consumed
		closed = append(closed, ClosedPosition{Amount: top.Asset, Open: top.Open, Close: trade})
		if remaining, err = remaining.Sub(top.Asset); err != nil {
			return nil, err
		}
	}
	s.lots[inst] = lots
	return closed, nil
}
