package journal

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	t0 = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	t1 = time.Date(2024, 1, 2, 4, 5, 6, 0, time.UTC)
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleTrade(id string, at time.Time) TradeRecord {
	return TradeRecord{
		TradeID:      id,
		Time:         at,
		SellSymbol:   "USD",
		SellQuantity: d("1234.50"),
		BuySymbol:    "BTC",
		BuyQuantity:  d("0.02500001"),
		ValueSymbol:  "USD",
		Value:        d("1234.50"),
		Reason:       "signal",
	}
}

func sampleClosed(open, close string, pl string) ClosedRecord {
	return ClosedRecord{
		OpenTradeID:  open,
		CloseTradeID: close,
		Symbol:       "BTC",
		Quantity:     d("0.01000000"),
		OpenTime:     t0,
		CloseTime:    t1,
		ValueSymbol:  "USD",
		Cost:         d("500.00"),
		Proceeds:     d("500.00").Add(d(pl)),
		RealizedPL:   d(pl),
	}
}
