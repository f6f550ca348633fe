package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
)

type tx struct {
	tx        pgx.Tx
	forUpdate bool
}

// lock returns the row locking clause for reads inside Update.
func (t *tx) lock(clause string) string {
	if t.forUpdate {
		return " " + clause
	}
	return ""
}

const instrumentCols = `instrument_id, symbol, price, volatility, last_updated`

func scanInstrument(row pgx.Row) (market.Instrument, error) {
	var in market.Instrument
	err := row.Scan(&in.ID, &in.Symbol, &in.Price, &in.Volatility, &in.LastUpdated)
	return in, err
}

func (t *tx) Instrument(ctx context.Context, id int64) (market.Instrument, error) {
	in, err := scanInstrument(t.tx.QueryRow(ctx,
		`SELECT `+instrumentCols+` FROM instruments WHERE instrument_id = $1`, id))
	if err != nil {
		return market.Instrument{}, mapErr(fmt.Sprintf("instrument %d", id), err)
	}
	return in, nil
}

func (t *tx) InstrumentBySymbol(ctx context.Context, symbol string) (market.Instrument, error) {
	in, err := scanInstrument(t.tx.QueryRow(ctx,
		`SELECT `+instrumentCols+` FROM instruments WHERE symbol = $1`, symbol))
	if err != nil {
		return market.Instrument{}, mapErr(fmt.Sprintf("instrument %q", symbol), err)
	}
	return in, nil
}

func (t *tx) Instruments(ctx context.Context) ([]market.Instrument, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+instrumentCols+` FROM instruments ORDER BY instrument_id ASC`)
	if err != nil {
		return nil, mapErr("list instruments", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (market.Instrument, error) {
		return scanInstrument(row)
	})
	if err != nil {
		return nil, mapErr("list instruments", err)
	}
	return out, nil
}

func (t *tx) CreateInstrument(ctx context.Context, seed market.InstrumentSeed, at time.Time) (market.Instrument, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO instruments (symbol, price, volatility, last_updated)
		VALUES ($1, $2, $3, $4)
		RETURNING instrument_id`,
		seed.Symbol, seed.Price, seed.Volatility, at,
	).Scan(&id)
	if err != nil {
		return market.Instrument{}, mapErr(fmt.Sprintf("create instrument %q", seed.Symbol), err)
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
	tag, err := t.tx.Exec(ctx,
		`UPDATE instruments SET price = $1, last_updated = $2 WHERE instrument_id = $3`,
		price, at, id)
	return mustAffect(tag, err, fmt.Sprintf("set price %d", id))
}

const accountCols = `user_id, username, balance, created_at`

func scanAccount(row pgx.Row) (market.Account, error) {
	var a market.Account
	err := row.Scan(&a.UserID, &a.Username, &a.Balance, &a.CreatedAt)
	return a, err
}

func (t *tx) Account(ctx context.Context, userID int64) (market.Account, error) {
	a, err := scanAccount(t.tx.QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE user_id = $1`+t.lock("FOR UPDATE"), userID))
	if err != nil {
		return market.Account{}, mapErr(fmt.Sprintf("account %d", userID), err)
	}
	return a, nil
}

func (t *tx) AccountByUsername(ctx context.Context, username string) (market.Account, error) {
	a, err := scanAccount(t.tx.QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE username = $1`, username))
	if err != nil {
		return market.Account{}, mapErr(fmt.Sprintf("account %q", username), err)
	}
	return a, nil
}

func (t *tx) CreateAccount(ctx context.Context, username string, balance float64, at time.Time) (market.Account, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO accounts (username, balance, created_at) VALUES ($1, $2, $3) RETURNING user_id`,
		username, balance, at,
	).Scan(&id)
	if err != nil {
		return market.Account{}, mapErr(fmt.Sprintf("create account %q", username), err)
	}
	return market.Account{UserID: id, Username: username, Balance: balance, CreatedAt: at}, nil
}

func (t *tx) SetBalance(ctx context.Context, userID int64, balance float64) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE accounts SET balance = $1 WHERE user_id = $2`, balance, userID)
	return mustAffect(tag, err, fmt.Sprintf("set balance %d", userID))
}

func (t *tx) DeleteAccount(ctx context.Context, userID int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM accounts WHERE user_id = $1`, userID)
	return mustAffect(tag, err, fmt.Sprintf("delete account %d", userID))
}

func (t *tx) Accounts(ctx context.Context) ([]market.Account, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+accountCols+` FROM accounts ORDER BY user_id ASC`)
	if err != nil {
		return nil, mapErr("list accounts", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (market.Account, error) {
		return scanAccount(row)
	})
	if err != nil {
		return nil, mapErr("list accounts", err)
	}
	return out, nil
}

// The outer join keeps positions whose instrument was removed; those read
// back with an empty symbol. Only the position side can be locked.
const positionSelect = `
	SELECT p.user_id, p.instrument_id, COALESCE(i.symbol, ''), p.quantity, p.total_cost
	FROM positions p
	LEFT JOIN instruments i ON i.instrument_id = p.instrument_id`

func scanPosition(row pgx.Row) (market.Position, error) {
	var p market.Position
	err := row.Scan(&p.UserID, &p.InstrumentID, &p.Symbol, &p.Quantity, &p.TotalCost)
	return p, err
}

func (t *tx) Position(ctx context.Context, userID, instrumentID int64) (market.Position, bool, error) {
	p, err := scanPosition(t.tx.QueryRow(ctx,
		positionSelect+` WHERE p.user_id = $1 AND p.instrument_id = $2`+t.lock("FOR UPDATE OF p"),
		userID, instrumentID))
	if errors.Is(err, pgx.ErrNoRows) {
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
	_, err := t.tx.Exec(ctx, `
		INSERT INTO positions (user_id, instrument_id, quantity, total_cost)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, instrument_id) DO UPDATE SET
		quantity = EXCLUDED.quantity,
		total_cost = EXCLUDED.total_cost`,
		p.UserID, p.InstrumentID, p.Quantity, p.TotalCost,
	)
	return mapErr(fmt.Sprintf("put position %d/%d", p.UserID, p.InstrumentID), err)
}

func (t *tx) DeletePosition(ctx context.Context, userID, instrumentID int64) error {
	tag, err := t.tx.Exec(ctx,
		`DELETE FROM positions WHERE user_id = $1 AND instrument_id = $2`, userID, instrumentID)
	return mustAffect(tag, err, fmt.Sprintf("delete position %d/%d", userID, instrumentID))
}

func (t *tx) DeletePositions(ctx context.Context, userID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM positions WHERE user_id = $1`, userID)
	return mapErr(fmt.Sprintf("delete positions %d", userID), err)
}

func (t *tx) Positions(ctx context.Context, userID int64) ([]market.Position, error) {
	rows, err := t.tx.Query(ctx,
		positionSelect+` WHERE p.user_id = $1 ORDER BY p.instrument_id ASC`, userID)
	if err != nil {
		return nil, mapErr("list positions", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (market.Position, error) {
		return scanPosition(row)
	})
	if err != nil {
		return nil, mapErr("list positions", err)
	}
	return out, nil
}

func (t *tx) RecordTrade(ctx context.Context, rec journal.TradeRecord) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO trades
		(trade_id, user_id, instrument_id, symbol, side, quantity, price, amount, cost_basis, realized_pl, time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.TradeID, rec.UserID, rec.InstrumentID, rec.Symbol, string(rec.Side), rec.Quantity,
		rec.Price, rec.Amount, rec.CostBasis, rec.RealizedPL, rec.Time,
	)
	return mapErr(fmt.Sprintf("record trade %s", rec.TradeID), err)
}

func (t *tx) Trades(ctx context.Context, userID int64) ([]journal.TradeRecord, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT trade_id, user_id, instrument_id, symbol, side, quantity, price, amount, cost_basis, realized_pl, time
		FROM trades
		WHERE user_id = $1
		ORDER BY trade_id ASC`, userID)
	if err != nil {
		return nil, mapErr("list trades", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (journal.TradeRecord, error) {
		var (
			rec  journal.TradeRecord
			side string
		)
		err := row.Scan(
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
		)
		rec.Side = broker.Side(side)
		return rec, err
	})
	if err != nil {
		return nil, mapErr("list trades", err)
	}
	return out, nil
}

// mustAffect turns an UPDATE or DELETE that matched no row into ErrNotFound.
func mustAffect(tag pgconn.CommandTag, err error, op string) error {
	if err != nil {
		return mapErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, broker.ErrNotFound)
	}
	return nil
}
