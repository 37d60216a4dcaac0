package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const tradeColumns = `trade_id, time, sell_symbol, sell_quantity, buy_symbol, buy_quantity, value_symbol, value, reason`

const closedColumns = `open_trade_id, close_trade_id, symbol, quantity, open_time, close_time, value_symbol, cost, proceeds, realized_pl`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (TradeRecord, error) {
	var rec TradeRecord
	err := s.Scan(
		&rec.TradeID,
		&rec.Time,
		&rec.SellSymbol,
		&rec.SellQuantity,
		&rec.BuySymbol,
		&rec.BuyQuantity,
		&rec.ValueSymbol,
		&rec.Value,
		&rec.Reason,
	)
	return rec, err
}

func scanClosed(s scanner) (ClosedRecord, error) {
	var rec ClosedRecord
	err := s.Scan(
		&rec.OpenTradeID,
		&rec.CloseTradeID,
		&rec.Symbol,
		&rec.Quantity,
		&rec.OpenTime,
		&rec.CloseTime,
		&rec.ValueSymbol,
		&rec.Cost,
		&rec.Proceeds,
		&rec.RealizedPL,
	)
	return rec, err
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	row := j.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE trade_id = ?`, tradeID)
	rec, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTrades returns every trade in execution order.
func (j *SQLite) ListTrades() ([]TradeRecord, error) {
	rows, err := j.db.Query(`SELECT ` + tradeColumns + ` FROM trades ORDER BY time ASC, rowid ASC`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTrade)
}

// ListTradesBetween returns trades executed within [start, end).
func (j *SQLite) ListTradesBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+tradeColumns+`
		FROM trades
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, rowid ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTrade)
}

// ListClosedPositions returns closed positions in the order they were closed.
func (j *SQLite) ListClosedPositions() ([]ClosedRecord, error) {
	rows, err := j.db.Query(`SELECT ` + closedColumns + ` FROM closed_positions ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanClosed)
}

// ListClosedByTrade returns the positions closed by one trade.
func (j *SQLite) ListClosedByTrade(closeTradeID string) ([]ClosedRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+closedColumns+`
		FROM closed_positions
		WHERE close_trade_id = ?
		ORDER BY id ASC`, closeTradeID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanClosed)
}

// ListValues returns the value history in time order.
func (j *SQLite) ListValues() ([]ValueRecord, error) {
	rows, err := j.db.Query(`SELECT time, value_symbol, value FROM value_history ORDER BY time ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(s scanner) (ValueRecord, error) {
		var rec ValueRecord
		err := s.Scan(&rec.Time, &rec.ValueSymbol, &rec.Value)
		return rec, err
	})
}

// Summary tallies closed positions.
type Summary struct {
	Closed     int
	Wins       int
	Losses     int
	RealizedPL decimal.Decimal
}

// Summarize counts wins and losses over the closed positions.
func (j *SQLite) Summarize() (Summary, error) {
	closed, err := j.ListClosedPositions()
	if err != nil {
		return Summary{}, err
	}
	return Summarize(closed), nil
}

func Summarize(closed []ClosedRecord) Summary {
	s := Summary{Closed: len(closed)}
	for _, c := range closed {
		switch c.RealizedPL.Sign() {
		case 1:
			s.Wins++
		case -1:
			s.Losses++
		}
		s.RealizedPL = s.RealizedPL.Add(c.RealizedPL)
	}
	return s
}

func collect[T any](rows *sql.Rows, scan func(scanner) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
