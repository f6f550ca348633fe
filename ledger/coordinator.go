// Package ledger executes trades and values portfolios on top of a
// transactional store.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/internal/id"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/store"
)

// Config holds ledger settings.
type Config struct {
	StartingBalance float64       // cash credited to new accounts
	Currency        string        // display currency
	TxTimeout       time.Duration // upper bound on one operation, lock wait included
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		StartingBalance: market.DefaultStartingBalance,
		Currency:        market.DefaultCurrency,
		TxTimeout:       5 * time.Second,
	}
}

// Coordinator runs Buy and Sell as single atomic units spanning the
// instrument catalog, the position rows and the account balance.
//
// Trades on the same (user, instrument) pair are serialized end to end by an
// in-process lock table; the store transaction underneath makes the writes
// all-or-nothing and serializes balance updates across instruments.
type Coordinator struct {
	cfg    Config
	store  store.Store
	locks  *lockTable
	logger *slog.Logger

	mu    sync.RWMutex
	clock func() time.Time
}

var _ broker.Broker = (*Coordinator)(nil)

// New creates a Coordinator over s.
func New(cfg Config, s store.Store, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = DefaultConfig().TxTimeout
	}
	if cfg.Currency == "" {
		cfg.Currency = market.DefaultCurrency
	}
	return &Coordinator{
		cfg:    cfg,
		store:  s,
		locks:  newLockTable(),
		logger: logger,
		clock:  time.Now,
	}
}

// SetClock replaces the time source used to stamp accounts and trades.
func (c *Coordinator) SetClock(clock func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = clock
}

func (c *Coordinator) now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clock()
}

// Currency returns the display currency.
func (c *Coordinator) Currency() string { return c.cfg.Currency }

// Buy purchases quantity units of an instrument at its current price.
func (c *Coordinator) Buy(ctx context.Context, userID, instrumentID, quantity int64) (broker.Fill, error) {
	if quantity <= 0 {
		return broker.Fill{}, fmt.Errorf("buy: %w: quantity must be positive, got %d", broker.ErrValidation, quantity)
	}

	var fill broker.Fill
	key := positionKey{userID: userID, instrumentID: instrumentID}
	err := c.trade(ctx, "buy", key, func(ctx context.Context, tx store.Tx) error {
		acct, err := tx.Account(ctx, userID)
		if err != nil {
			return err
		}
		inst, err := tx.Instrument(ctx, instrumentID)
		if err != nil {
			return err
		}

		cost := float64(quantity) * inst.Price
		if acct.Balance < cost {
			return fmt.Errorf("%w: balance %.2f, cost %.2f", broker.ErrInsufficientFunds, acct.Balance, cost)
		}

		pos, ok, err := tx.Position(ctx, userID, instrumentID)
		if err != nil {
			return err
		}
		if !ok {
			pos = market.Position{UserID: userID, InstrumentID: instrumentID}
		}
		pos.Symbol = inst.Symbol
		pos.Buy(quantity, inst.Price)

		if err := tx.PutPosition(ctx, pos); err != nil {
			return err
		}
		balance := acct.Balance - cost
		if err := tx.SetBalance(ctx, userID, balance); err != nil {
			return err
		}

		at := c.now()
		fill = broker.Fill{
			TradeID:      id.At(at),
			UserID:       userID,
			InstrumentID: instrumentID,
			Symbol:       inst.Symbol,
			Side:         broker.SideBuy,
			Quantity:     quantity,
			Price:        inst.Price,
			Amount:       cost,
			NewBalance:   balance,
		}
		return tx.RecordTrade(ctx, journal.FromFill(fill, cost, at))
	})
	if err != nil {
		return broker.Fill{}, err
	}

	c.logger.Info("buy filled",
		"user", userID,
		"symbol", fill.Symbol,
		"quantity", quantity,
		"price", fill.Price,
		"balance", fill.NewBalance,
	)
	return fill, nil
}

// Sell disposes of quantity units at the current market price. Proceeds are
// priced at market, not at average cost; the difference is the realized P/L.
func (c *Coordinator) Sell(ctx context.Context, userID, instrumentID, quantity int64) (broker.Fill, error) {
	if quantity <= 0 {
		return broker.Fill{}, fmt.Errorf("sell: %w: quantity must be positive, got %d", broker.ErrValidation, quantity)
	}

	var fill broker.Fill
	key := positionKey{userID: userID, instrumentID: instrumentID}
	err := c.trade(ctx, "sell", key, func(ctx context.Context, tx store.Tx) error {
		acct, err := tx.Account(ctx, userID)
		if err != nil {
			return err
		}
		inst, err := tx.Instrument(ctx, instrumentID)
		if err != nil {
			return err
		}
		pos, ok, err := tx.Position(ctx, userID, instrumentID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: no position in %s", broker.ErrInsufficientShares, inst.Symbol)
		}
		if quantity > pos.Quantity {
			return fmt.Errorf("%w: owned %d, requested %d", broker.ErrInsufficientShares, pos.Quantity, quantity)
		}

		proceeds := float64(quantity) * inst.Price
		basis := pos.Sell(quantity)

		if pos.Closed() {
			err = tx.DeletePosition(ctx, userID, instrumentID)
		} else {
			err = tx.PutPosition(ctx, pos)
		}
		if err != nil {
			return err
		}

		balance := acct.Balance + proceeds
		if err := tx.SetBalance(ctx, userID, balance); err != nil {
			return err
		}

		at := c.now()
		fill = broker.Fill{
			TradeID:      id.At(at),
			UserID:       userID,
			InstrumentID: instrumentID,
			Symbol:       inst.Symbol,
			Side:         broker.SideSell,
			Quantity:     quantity,
			Price:        inst.Price,
			Amount:       proceeds,
			RealizedPL:   proceeds - basis,
			NewBalance:   balance,
		}
		return tx.RecordTrade(ctx, journal.FromFill(fill, basis, at))
	})
	if err != nil {
		return broker.Fill{}, err
	}

	c.logger.Info("sell filled",
		"user", userID,
		"symbol", fill.Symbol,
		"quantity", quantity,
		"price", fill.Price,
		"realized_pl", fill.RealizedPL,
		"balance", fill.NewBalance,
	)
	return fill, nil
}

// AddFunds credits amount to the account and returns the new balance.
func (c *Coordinator) AddFunds(ctx context.Context, userID int64, amount float64) (float64, error) {
	if err := market.ValidAmount(amount); err != nil {
		return 0, fmt.Errorf("add funds: %w: %v", broker.ErrValidation, err)
	}

	var balance float64
	err := c.update(ctx, "add funds", func(ctx context.Context, tx store.Tx) error {
		acct, err := tx.Account(ctx, userID)
		if err != nil {
			return err
		}
		balance = acct.Balance + amount
		return tx.SetBalance(ctx, userID, balance)
	})
	if err != nil {
		return 0, err
	}

	c.logger.Info("funds added", "user", userID, "amount", amount, "balance", balance)
	return balance, nil
}

// OpenAccount registers username with the configured starting balance.
func (c *Coordinator) OpenAccount(ctx context.Context, username string) (market.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return market.Account{}, fmt.Errorf("open account: %w: username is required", broker.ErrValidation)
	}

	var acct market.Account
	err := c.update(ctx, "open account", func(ctx context.Context, tx store.Tx) error {
		var err error
		acct, err = tx.CreateAccount(ctx, username, c.cfg.StartingBalance, c.now())
		return err
	})
	if err != nil {
		return market.Account{}, err
	}

	c.logger.Info("account opened", "user", acct.UserID, "username", acct.Username, "balance", acct.Balance)
	return acct, nil
}

// CloseAccount removes the account and every position it holds. The trade
// journal is kept.
func (c *Coordinator) CloseAccount(ctx context.Context, userID int64) error {
	err := c.update(ctx, "close account", func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Account(ctx, userID); err != nil {
			return err
		}
		if err := tx.DeletePositions(ctx, userID); err != nil {
			return err
		}
		return tx.DeleteAccount(ctx, userID)
	})
	if err != nil {
		return err
	}

	c.logger.Info("account closed", "user", userID)
	return nil
}

// Account returns the account row for userID.
func (c *Coordinator) Account(ctx context.Context, userID int64) (market.Account, error) {
	var acct market.Account
	err := c.view(ctx, "account", func(ctx context.Context, tx store.Tx) error {
		var err error
		acct, err = tx.Account(ctx, userID)
		return err
	})
	return acct, err
}

// AccountByUsername looks an account up by its unique username.
func (c *Coordinator) AccountByUsername(ctx context.Context, username string) (market.Account, error) {
	var acct market.Account
	err := c.view(ctx, "account", func(ctx context.Context, tx store.Tx) error {
		var err error
		acct, err = tx.AccountByUsername(ctx, strings.TrimSpace(username))
		return err
	})
	return acct, err
}

// Balance returns the cash balance of userID.
func (c *Coordinator) Balance(ctx context.Context, userID int64) (float64, error) {
	acct, err := c.Account(ctx, userID)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

// Trades returns the user's executed trades in execution order.
func (c *Coordinator) Trades(ctx context.Context, userID int64) ([]journal.TradeRecord, error) {
	var out []journal.TradeRecord
	err := c.view(ctx, "trades", func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Account(ctx, userID); err != nil {
			return err
		}
		var err error
		out, err = tx.Trades(ctx, userID)
		return err
	})
	return out, err
}

// trade runs fn under the position lock for key and inside one store
// transaction, all within the configured timeout.
func (c *Coordinator) trade(ctx context.Context, op string, key positionKey, fn func(context.Context, store.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.TxTimeout)
	defer cancel()

	release, err := c.locks.acquire(ctx, key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer release()

	err = c.store.Update(ctx, func(tx store.Tx) error { return fn(ctx, tx) })
	return classify(op, err)
}

func (c *Coordinator) update(ctx context.Context, op string, fn func(context.Context, store.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.TxTimeout)
	defer cancel()

	err := c.store.Update(ctx, func(tx store.Tx) error { return fn(ctx, tx) })
	return classify(op, err)
}

func (c *Coordinator) view(ctx context.Context, op string, fn func(context.Context, store.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.TxTimeout)
	defer cancel()

	err := c.store.View(ctx, func(tx store.Tx) error { return fn(ctx, tx) })
	return classify(op, err)
}

// classify prefixes err with op and marks timeouts as retryable conflicts.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, broker.ErrConcurrencyConflict) {
		return fmt.Errorf("%s: %w: %w", op, broker.ErrConcurrencyConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
