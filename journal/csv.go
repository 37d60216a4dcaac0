package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"
)

var (
	tradeHeader  = []string{"trade_id", "time", "sell_symbol", "sell_quantity", "buy_symbol", "buy_quantity", "value_symbol", "value", "reason"}
	closedHeader = []string{"open_trade_id", "close_trade_id", "symbol", "quantity", "open_time", "close_time", "value_symbol", "cost", "proceeds", "realized_pl"}
	valueHeader  = []string{"time", "value_symbol", "value"}
)

// CSV writes trades, closed positions and values to three CSV files.
// Decimals are written exactly as held.
type CSV struct {
	trades, closed, values *csv.Writer
	files                  []*os.File
}

func NewCSV(tradesPath, closedPath, valuesPath string) (*CSV, error) {
	j := &CSV{}
	var err error
	if j.trades, err = j.create(tradesPath, tradeHeader); err != nil {
		return nil, err
	}
	if j.closed, err = j.create(closedPath, closedHeader); err != nil {
		return nil, err
	}
	if j.values, err = j.create(valuesPath, valueHeader); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *CSV) create(path string, header []string) (*csv.Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		j.closeFiles()
		return nil, fmt.Errorf("create journal %s: %w", path, err)
	}
	j.files = append(j.files, f)

	w := csv.NewWriter(f)
	if err := write(w, header); err != nil {
		j.closeFiles()
		return nil, err
	}
	return w, nil
}

func (j *CSV) RecordTrade(t TradeRecord) error {
	return write(j.trades, []string{
		t.TradeID,
		ts(t.Time),
		t.SellSymbol,
		t.SellQuantity.String(),
		t.BuySymbol,
		t.BuyQuantity.String(),
		t.ValueSymbol,
		t.Value.String(),
		t.Reason,
	})
}

func (j *CSV) RecordClosed(c ClosedRecord) error {
	return write(j.closed, []string{
		c.OpenTradeID,
		c.CloseTradeID,
		c.Symbol,
		c.Quantity.String(),
		ts(c.OpenTime),
		ts(c.CloseTime),
		c.ValueSymbol,
		c.Cost.String(),
		c.Proceeds.String(),
		c.RealizedPL.String(),
	})
}

func (j *CSV) RecordValue(v ValueRecord) error {
	return write(j.values, []string{ts(v.Time), v.ValueSymbol, v.Value.String()})
}

func (j *CSV) Close() error {
	for _, w := range []*csv.Writer{j.trades, j.closed, j.values} {
		w.Flush()
		if err := w.Error(); err != nil {
			j.closeFiles()
			return err
		}
	}
	return j.closeFiles()
}

func (j *CSV) closeFiles() error {
	var first error
	for _, f := range j.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	j.files = nil
	return first
}

func write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
