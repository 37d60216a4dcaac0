package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, time, sell_symbol, sell_quantity, buy_symbol, buy_quantity, value_symbol, value, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Time.UTC(), t.SellSymbol, t.SellQuantity.String(), t.BuySymbol,
		t.BuyQuantity.String(), t.ValueSymbol, t.Value.String(), t.Reason,
	)
	return err
}

func (j *SQLite) RecordClosed(c ClosedRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO closed_positions
		(open_trade_id, close_trade_id, symbol, quantity, open_time, close_time, value_symbol, cost, proceeds, realized_pl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.OpenTradeID, c.CloseTradeID, c.Symbol, c.Quantity.String(), c.OpenTime.UTC(), c.CloseTime.UTC(),
		c.ValueSymbol, c.Cost.String(), c.Proceeds.String(), c.RealizedPL.String(),
	)
	return err
}

func (j *SQLite) RecordValue(v ValueRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO value_history (time, value_symbol, value)
		VALUES (?, ?, ?)`,
		v.Time.UTC(), v.ValueSymbol, v.Value.String(),
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
