// Package store defines the transactional row store the ledger and the
// price simulator run on. Implementations live in store/sqlite and
// store/postgres.
package store

import (
	"context"
	"time"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
)

// Store runs functions inside transactions. A function passed to Update
// either commits all of its writes or none of them; returning an error or
// cancelling ctx rolls back. View sees one consistent snapshot.
type Store interface {
	Update(ctx context.Context, fn func(Tx) error) error
	View(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// Tx is the set of row operations available inside a transaction. Lookups
// of missing rows fail with broker.ErrNotFound. Inside Update, Account and
// Position reads lock the rows they return until the transaction ends.
type Tx interface {
	// instruments
	Instrument(ctx context.Context, id int64) (market.Instrument, error)
	InstrumentBySymbol(ctx context.Context, symbol string) (market.Instrument, error)
	Instruments(ctx context.Context) ([]market.Instrument, error)
	CreateInstrument(ctx context.Context, seed market.InstrumentSeed, at time.Time) (market.Instrument, error)
	SetPrice(ctx context.Context, id int64, price float64, at time.Time) error

	// accounts
	Account(ctx context.Context, userID int64) (market.Account, error)
	AccountByUsername(ctx context.Context, username string) (market.Account, error)
	CreateAccount(ctx context.Context, username string, balance float64, at time.Time) (market.Account, error)
	SetBalance(ctx context.Context, userID int64, balance float64) error
	DeleteAccount(ctx context.Context, userID int64) error
	Accounts(ctx context.Context) ([]market.Account, error)

	// positions; ok is false when the user holds none of the instrument
	Position(ctx context.Context, userID, instrumentID int64) (p market.Position, ok bool, err error)
	PutPosition(ctx context.Context, p market.Position) error
	DeletePosition(ctx context.Context, userID, instrumentID int64) error
	DeletePositions(ctx context.Context, userID int64) error
	Positions(ctx context.Context, userID int64) ([]market.Position, error)

	// trade journal
	RecordTrade(ctx context.Context, rec journal.TradeRecord) error
	Trades(ctx context.Context, userID int64) ([]journal.TradeRecord, error)
}

// Seed creates the given instruments when the catalog is empty. It returns
// the number of instruments created.
func Seed(ctx context.Context, s Store, seeds []market.InstrumentSeed, at time.Time) (int, error) {
	created := 0
	err := s.Update(ctx, func(tx Tx) error {
		existing, err := tx.Instruments(ctx)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}
		for _, seed := range seeds {
			if _, err := tx.CreateInstrument(ctx, seed, at); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
