// Package journal persists what a simulation run did: every executed trade,
// every closed position and the portfolio value after each tick.
package journal

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/merchant/portfolio"
)

// TradeRecord is one executed trade.
type TradeRecord struct {
	TradeID      string
	Time         time.Time
	SellSymbol   string
	SellQuantity decimal.Decimal
	BuySymbol    string
	BuyQuantity  decimal.Decimal
	ValueSymbol  string
	Value        decimal.Decimal
	Reason       string
}

// ClosedRecord is one lot (or part of a lot) closed by a trade.
type ClosedRecord struct {
	OpenTradeID  string
	CloseTradeID string
	Symbol       string
	Quantity     decimal.Decimal
	OpenTime     time.Time
	CloseTime    time.Time
	ValueSymbol  string
	Cost         decimal.Decimal
	Proceeds     decimal.Decimal
	RealizedPL   decimal.Decimal
}

// ValueRecord is the portfolio value at a point in time.
type ValueRecord struct {
	Time        time.Time
	ValueSymbol string
	Value       decimal.Decimal
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordClosed(ClosedRecord) error
	RecordValue(ValueRecord) error
	Close() error
}

func NewTradeRecord(t portfolio.ValuedTrade, reason string) TradeRecord {
	return TradeRecord{
		TradeID:      t.ID,
		Time:         t.Time,
		SellSymbol:   t.Sell.Instrument().Symbol,
		SellQuantity: t.Sell.Quantity(),
		BuySymbol:    t.Buy.Instrument().Symbol,
		BuyQuantity:  t.Buy.Quantity(),
		ValueSymbol:  t.Value.Instrument().Symbol,
		Value:        t.Value.Quantity(),
		Reason:       reason,
	}
}

func NewClosedRecord(c portfolio.ClosedPosition) ClosedRecord {
	return ClosedRecord{
		OpenTradeID:  c.Open.ID,
		CloseTradeID: c.Close.ID,
		Symbol:       c.Amount.Instrument().Symbol,
		Quantity:     c.Amount.Quantity(),
		OpenTime:     c.Open.Time,
		CloseTime:    c.Close.Time,
		ValueSymbol:  c.Close.Value.Instrument().Symbol,
		Cost:         c.Cost().Quantity(),
		Proceeds:     c.Proceeds().Quantity(),
		RealizedPL:   c.PL().Quantity(),
	}
}

func NewValueRecord(v portfolio.ValuePoint) ValueRecord {
	return ValueRecord{
		Time:        v.Time,
		ValueSymbol: v.Value.Instrument().Symbol,
		Value:       v.Value.Quantity(),
	}
}

// Discard is a Journal that drops everything.
type Discard struct{}

func (Discard) RecordTrade(TradeRecord) error   { return nil }
func (Discard) RecordClosed(ClosedRecord) error { return nil }
func (Discard) RecordValue(ValueRecord) error   { return nil }
func (Discard) Close() error                    { return nil }
