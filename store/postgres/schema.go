package postgres

// Schema is applied on Open. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	user_id BIGSERIAL PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	balance DOUBLE PRECISION NOT NULL CHECK (balance >= 0),
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS instruments (
	instrument_id BIGSERIAL PRIMARY KEY,
	symbol TEXT NOT NULL UNIQUE,
	price DOUBLE PRECISION NOT NULL CHECK (price > 0),
	volatility DOUBLE PRECISION NOT NULL CHECK (volatility >= 0),
	last_updated TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	user_id BIGINT NOT NULL,
	instrument_id BIGINT NOT NULL,
	quantity BIGINT NOT NULL CHECK (quantity > 0),
	total_cost DOUBLE PRECISION NOT NULL CHECK (total_cost >= 0),
	PRIMARY KEY (user_id, instrument_id)
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	user_id BIGINT NOT NULL,
	instrument_id BIGINT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity BIGINT NOT NULL,
	price DOUBLE PRECISION NOT NULL,
	amount DOUBLE PRECISION NOT NULL,
	cost_basis DOUBLE PRECISION NOT NULL,
	realized_pl DOUBLE PRECISION NOT NULL,
	time TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_user ON trades(user_id, trade_id);
`
