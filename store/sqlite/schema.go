// store/sqlite/schema.go
package sqlite

const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	user_id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	balance REAL NOT NULL CHECK (balance >= 0),
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS instruments (
	instrument_id INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol TEXT NOT NULL UNIQUE,
	price REAL NOT NULL CHECK (price > 0),
	volatility REAL NOT NULL CHECK (volatility >= 0),
	last_updated DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	user_id INTEGER NOT NULL,
	instrument_id INTEGER NOT NULL,
	quantity INTEGER NOT NULL CHECK (quantity > 0),
	total_cost REAL NOT NULL CHECK (total_cost >= 0),
	PRIMARY KEY (user_id, instrument_id)
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	instrument_id INTEGER NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	price REAL NOT NULL,
	amount REAL NOT NULL,
	cost_basis REAL NOT NULL,
	realized_pl REAL NOT NULL,
	time DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_user ON trades(user_id, trade_id);
`
