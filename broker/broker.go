package broker

import (
	"context"

	"github.com/rustyeddy/papertrader/market"
)

// Broker is the trading surface offered to the request layer.
type Broker interface {
	Buy(ctx context.Context, userID, instrumentID, quantity int64) (Fill, error)
	Sell(ctx context.Context, userID, instrumentID, quantity int64) (Fill, error)
	AddFunds(ctx context.Context, userID int64, amount float64) (float64, error)
	Portfolio(ctx context.Context, userID int64) ([]market.Holding, error)
	PortfolioValue(ctx context.Context, userID int64) (float64, error)
	ProfitLoss(ctx context.Context, userID int64) (float64, error)
}

// Side is the direction of a fill.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Fill is the result of an executed Buy or Sell.
type Fill struct {
	TradeID      string
	UserID       int64
	InstrumentID int64
	Symbol       string
	Side         Side
	Quantity     int64
	Price        float64
	Amount       float64 // cost of a buy, proceeds of a sell
	RealizedPL   float64 // sells only
	NewBalance   float64
}
