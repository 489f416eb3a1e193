package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	action TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	order_type TEXT NOT NULL,
	entry_price REAL NOT NULL,
	stop_loss REAL NOT NULL DEFAULT 0,
	take_profit REAL NOT NULL DEFAULT 0,
	order_id TEXT NOT NULL DEFAULT '',
	trading_mode TEXT NOT NULL DEFAULT 'PAPER',
	agent_generated INTEGER NOT NULL DEFAULT 0,
	confidence REAL NOT NULL DEFAULT 0,
	reasoning TEXT NOT NULL DEFAULT '',
	entry_time DATETIME NOT NULL,
	exit_price REAL NOT NULL DEFAULT 0,
	pnl REAL NOT NULL DEFAULT 0,
	pnl_pct REAL NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'OPEN',
	exit_time DATETIME
);

CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
CREATE INDEX IF NOT EXISTS idx_trades_entry_time ON trades(entry_time);
`
