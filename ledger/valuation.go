package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/store"
)

// Valuation is an account priced from one snapshot of the catalog.
type Valuation struct {
	UserID         int64
	Balance        float64
	PortfolioValue float64 // sum of quantity * current price
	CostBasis      float64 // sum of total cost
	ProfitLoss     float64 // PortfolioValue - CostBasis
	Holdings       []market.Holding
}

// Equity is cash plus the market value of all holdings.
func (v Valuation) Equity() float64 {
	return v.Balance + v.PortfolioValue
}

// Snapshot converts v into a journal record stamped t.
func (v Valuation) Snapshot(t time.Time) journal.EquitySnapshot {
	return journal.EquitySnapshot{
		Time:           t,
		UserID:         v.UserID,
		Balance:        v.Balance,
		PortfolioValue: v.PortfolioValue,
		CostBasis:      v.CostBasis,
		ProfitLoss:     v.ProfitLoss,
		Equity:         v.Equity(),
	}
}

// Valuation prices every position of userID at the current catalog price.
// All reads happen in one snapshot, so no price can move part way through.
// A position whose instrument is missing fails the whole call with
// ErrNotFound rather than being valued at zero.
func (c *Coordinator) Valuation(ctx context.Context, userID int64) (Valuation, error) {
	var v Valuation
	err := c.view(ctx, "valuation", func(ctx context.Context, tx store.Tx) error {
		var err error
		v, err = valueAccount(ctx, tx, userID)
		return err
	})
	if err != nil {
		return Valuation{}, err
	}
	return v, nil
}

func valueAccount(ctx context.Context, tx store.Tx, userID int64) (Valuation, error) {
	acct, err := tx.Account(ctx, userID)
	if err != nil {
		return Valuation{}, err
	}
	positions, err := tx.Positions(ctx, userID)
	if err != nil {
		return Valuation{}, err
	}

	v := Valuation{
		UserID:   userID,
		Balance:  acct.Balance,
		Holdings: make([]market.Holding, 0, len(positions)),
	}
	for _, p := range positions {
		inst, err := tx.Instrument(ctx, p.InstrumentID)
		if err != nil {
			return Valuation{}, fmt.Errorf("value position in instrument %d: %w", p.InstrumentID, err)
		}
		h := market.NewHolding(p, inst)
		v.Holdings = append(v.Holdings, h)
		v.PortfolioValue += h.MarketValue
		v.CostBasis += p.TotalCost
	}
	v.ProfitLoss = v.PortfolioValue - v.CostBasis

	sort.Slice(v.Holdings, func(i, j int) bool {
		return v.Holdings[i].Symbol < v.Holdings[j].Symbol
	})
	return v, nil
}

// Portfolio lists the user's holdings ordered by symbol.
func (c *Coordinator) Portfolio(ctx context.Context, userID int64) ([]market.Holding, error) {
	v, err := c.Valuation(ctx, userID)
	if err != nil {
		return nil, err
	}
	return v.Holdings, nil
}

// PortfolioValue is the market value of all the user's holdings.
func (c *Coordinator) PortfolioValue(ctx context.Context, userID int64) (float64, error) {
	v, err := c.Valuation(ctx, userID)
	if err != nil {
		return 0, err
	}
	return v.PortfolioValue, nil
}

// ProfitLoss is the unrealized profit or loss over all the user's holdings.
func (c *Coordinator) ProfitLoss(ctx context.Context, userID int64) (float64, error) {
	v, err := c.Valuation(ctx, userID)
	if err != nil {
		return 0, err
	}
	return v.ProfitLoss, nil
}

// Snapshots values every account. Accounts that fail to value are logged
// and skipped.
func (c *Coordinator) Snapshots(ctx context.Context) ([]journal.EquitySnapshot, error) {
	var accounts []market.Account
	err := c.view(ctx, "list accounts", func(ctx context.Context, tx store.Tx) error {
		var err error
		accounts, err = tx.Accounts(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	at := c.now()
	out := make([]journal.EquitySnapshot, 0, len(accounts))
	for _, a := range accounts {
		v, err := c.Valuation(ctx, a.UserID)
		if err != nil {
			c.logger.Warn("valuation failed", "user", a.UserID, "error", err)
			continue
		}
		out = append(out, v.Snapshot(at))
	}
	return out, nil
}
