package journal

// Schema creates the journal tables. Decimal columns are TEXT so values
// round-trip exactly.
const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	sell_symbol TEXT NOT NULL,
	sell_quantity TEXT NOT NULL,
	buy_symbol TEXT NOT NULL,
	buy_quantity TEXT NOT NULL,
	value_symbol TEXT NOT NULL,
	value TEXT NOT NULL,
	reason TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS closed_positions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	open_trade_id TEXT NOT NULL,
	close_trade_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	quantity TEXT NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	value_symbol TEXT NOT NULL,
	cost TEXT NOT NULL,
	proceeds TEXT NOT NULL,
	realized_pl TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS value_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	time DATETIME NOT NULL,
	value_symbol TEXT NOT NULL,
	value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_time ON trades(time);
CREATE INDEX IF NOT EXISTS idx_closed_close_trade ON closed_positions(close_trade_id);
CREATE INDEX IF NOT EXISTS idx_value_history_time ON value_history(time);
`
