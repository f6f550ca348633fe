package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
)

type tx struct {
	tx *sql.Tx
}

const instrumentCols = `instrument_id, symbol, price, volatility, last_updated`

func scanInstrument(row interface{ Scan(...any) error }) (market.Instrument, error) {
	var in market.Instrument
	err := row.Scan(&in.ID, &in.Symbol, &in.Price, &in.Volatility, &in.LastUpdated)
	return in, err
}

func (t *tx) Instrument(ctx context.Context, id int64) (market.Instrument, error) {
	in, err := scanInstrument(t.tx.QueryRowContext(ctx,
		`SELECT `+instrumentCols+` FROM instruments WHERE instrument_id = ?`, id))
	if err != nil {
		return market.Instrument{}, mapErr(fmt.Sprintf("instrument %d", id), err)
	}
	return in, nil
}

func (t *tx) InstrumentBySymbol(ctx context.Context, symbol string) (market.Instrument, error) {
	in, err := scanInstrument(t.tx.QueryRowContext(ctx,
		`SELECT `+instrumentCols+` FROM instruments WHERE symbol = ?`, symbol))
	if err != nil {
		return market.Instrument{}, mapErr(fmt.Sprintf("instrument %q", symbol), err)
	}
	return in, nil
}

func (t *tx) Instruments(ctx context.Context) ([]market.Instrument, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+instrumentCols+` FROM instruments ORDER BY instrument_id ASC`)
	if err != nil {
		return nil, mapErr("list instruments", err)
	}
	defer rows.Close()

	var out []market.Instrument
	for rows.Next() {
		in, err := scanInstrument(rows)
		if err != nil {
			return nil, mapErr("scan instrument", err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list instruments", err)
	}
	return out, nil
}

func (t *tx) CreateInstrument(ctx context.Context, seed market.InstrumentSeed, at time.Time) (market.Instrument, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO instruments (symbol, price, volatility, last_updated)
		VALUES (?, ?, ?, ?)`,
		seed.Symbol, seed.Price, seed.Volatility, at,
	)
	if err != nil {
		return market.Instrument{}, mapErr(fmt.Sprintf("create instrument %q", seed.Symbol), err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return market.Instrument{}, mapErr("create instrument", err)
	}
	return market.Instrument{
		ID:          id,
		Symbol:      seed.Symbol,
		Price:       seed.Price,
		Volatility:  seed.Volatility,
		LastUpdated: at,
	}, nil
}

func (t *tx) SetPrice(ctx context.Context, id int64, price float64, at time.Time) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE instruments SET price = ?, last_updated = ? WHERE instrument_id = ?`,
		price, at, id)
	return mustAffect(res, err, fmt.Sprintf("set price %d", id))
}

const accountCols = `user_id, username, balance, created_at`

func scanAccount(row interface{ Scan(...any) error }) (market.Account, error) {
	var a market.Account
	err := row.Scan(&a.UserID, &a.Username, &a.Balance, &a.CreatedAt)
	return a, err
}

func (t *tx) Account(ctx context.Context, userID int64) (market.Account, error) {
	a, err := scanAccount(t.tx.QueryRowContext(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE user_id = ?`, userID))
	if err != nil {
		return market.Account{}, mapErr(fmt.Sprintf("account %d", userID), err)
	}
	return a, nil
}

func (t *tx) AccountByUsername(ctx context.Context, username string) (market.Account, error) {
	a, err := scanAccount(t.tx.QueryRowContext(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE username = ?`, username))
	if err != nil {
		return market.Account{}, mapErr(fmt.Sprintf("account %q", username), err)
	}
	return a, nil
}

func (t *tx) CreateAccount(ctx context.Context, username string, balance float64, at time.Time) (market.Account, error) {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO accounts (username, balance, created_at) VALUES (?, ?, ?)`,
		username, balance, at)
	if err != nil {
		return market.Account{}, mapErr(fmt.Sprintf("create account %q", username), err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return market.Account{}, mapErr("create account", err)
	}
	return market.Account{UserID: id, Username: username, Balance: balance, CreatedAt: at}, nil
}

func (t *tx) SetBalance(ctx context.Context, userID int64, balance float64) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE accounts SET balance = ? WHERE user_id = ?`, balance, userID)
	return mustAffect(res, err, fmt.Sprintf("set balance %d", userID))
}

func (t *tx) DeleteAccount(ctx context.Context, userID int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM accounts WHERE user_id = ?`, userID)
	return mustAffect(res, err, fmt.Sprintf("delete account %d", userID))
}

func (t *tx) Accounts(ctx context.Context) ([]market.Account, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+accountCols+` FROM accounts ORDER BY user_id ASC`)
	if err != nil {
		return nil, mapErr("list accounts", err)
	}
	defer rows.Close()

	var out []market.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, mapErr("scan account", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list accounts", err)
	}
	return out, nil
}

// Symbols come from the catalog; a position whose instrument has been
// removed reads back with an empty symbol.
const positionSelect = `
	SELECT p.user_id, p.instrument_id, COALESCE(i.symbol, ''), p.quantity, p.total_cost
	FROM positions p
	LEFT JOIN instruments i ON i.instrument_id = p.instrument_id`

func scanPosition(row interface{ Scan(...any) error }) (market.Position, error) {
	var p market.Position
	err := row.Scan(&p.UserID, &p.InstrumentID, &p.Symbol, &p.Quantity, &p.TotalCost)
	return p, err
}

func (t *tx) Position(ctx context.Context, userID, instrumentID int64) (market.Position, bool, error) {
	p, err := scanPosition(t.tx.QueryRowContext(ctx,
		positionSelect+` WHERE p.user_id = ? AND p.instrument_id = ?`, userID, instrumentID))
	if err == sql.ErrNoRows {
		return market.Position{}, false, nil
	}
	if err != nil {
		return market.Position{}, false, mapErr(fmt.Sprintf("position %d/%d", userID, instrumentID), err)
	}
	return p, true, nil
}

func (t *tx) PutPosition(ctx context.Context, p market.Position) error {
	if p.Quantity <= 0 {
		return fmt.Errorf("put position %d/%d: %w: quantity %d", p.UserID, p.InstrumentID, broker.ErrValidation, p.Quantity)
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO positions (user_id, instrument_id, quantity, total_cost)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, instrument_id) DO UPDATE SET
		quantity = excluded.quantity,
		total_cost = excluded.total_cost`,
		p.UserID, p.InstrumentID, p.Quantity, p.TotalCost,
	)
	return mapErr(fmt.Sprintf("put position %d/%d", p.UserID, p.InstrumentID), err)
}

func (t *tx) DeletePosition(ctx context.Context, userID, instrumentID int64) error {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM positions WHERE user_id = ? AND instrument_id = ?`, userID, instrumentID)
	return mustAffect(res, err, fmt.Sprintf("delete position %d/%d", userID, instrumentID))
}

func (t *tx) DeletePositions(ctx context.Context, userID int64) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM positions WHERE user_id = ?`, userID)
	return mapErr(fmt.Sprintf("delete positions %d", userID), err)
}

func (t *tx) Positions(ctx context.Context, userID int64) ([]market.Position, error) {
	rows, err := t.tx.QueryContext(ctx,
		positionSelect+` WHERE p.user_id = ? ORDER BY p.instrument_id ASC`, userID)
	if err != nil {
		return nil, mapErr("list positions", err)
	}
	defer rows.Close()

	var out []market.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, mapErr("scan position", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list positions", err)
	}
	return out, nil
}

func (t *tx) RecordTrade(ctx context.Context, rec journal.TradeRecord) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO trades
		(trade_id, user_id, instrument_id, symbol, side, quantity, price, amount, cost_basis, realized_pl, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TradeID, rec.UserID, rec.InstrumentID, rec.Symbol, string(rec.Side), rec.Quantity,
		rec.Price, rec.Amount, rec.CostBasis, rec.RealizedPL, rec.Time,
	)
	return mapErr(fmt.Sprintf("record trade %s", rec.TradeID), err)
}

func (t *tx) Trades(ctx context.Context, userID int64) ([]journal.TradeRecord, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT trade_id, user_id, instrument_id, symbol, side, quantity, price, amount, cost_basis, realized_pl, time
		FROM trades
		WHERE user_id = ?
		ORDER BY trade_id ASC`, userID)
	if err != nil {
		return nil, mapErr("list trades", err)
	}
	defer rows.Close()

	var out []journal.TradeRecord
	for rows.Next() {
		var (
			rec  journal.TradeRecord
			side string
		)
		if err := rows.Scan(
			&rec.TradeID,
			&rec.UserID,
			&rec.InstrumentID,
			&rec.Symbol,
			&side,
			&rec.Quantity,
			&rec.Price,
			&rec.Amount,
			&rec.CostBasis,
			&rec.RealizedPL,
			&rec.Time,
		); err != nil {
			return nil, mapErr("scan trade", err)
		}
		rec.Side = broker.Side(side)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list trades", err)
	}
	return out, nil
}

// mustAffect turns an UPDATE or DELETE that matched no row into ErrNotFound.
func mustAffect(res sql.Result, err error, op string) error {
	if err != nil {
		return mapErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, broker.ErrNotFound)
	}
	return nil
}
