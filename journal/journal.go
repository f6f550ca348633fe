// journal/journal.go
package journal

import (
	"time"

	"github.com/rustyeddy/papertrader/broker"
)

// TradeRecord is one executed fill. Records are written in the same
// transaction as the balance and position change they describe.
type TradeRecord struct {
	TradeID      string
	UserID       int64
	InstrumentID int64
	Symbol       string
	Side         broker.Side
	Quantity     int64
	Price        float64
	Amount       float64 // cost of a buy, proceeds of a sell
	CostBasis    float64 // basis added by a buy, removed by a sell
	RealizedPL   float64
	Time         time.Time
}

// EquitySnapshot is a point-in-time valuation of one account.
type EquitySnapshot struct {
	Time           time.Time
	UserID         int64
	Balance        float64
	PortfolioValue float64
	CostBasis      float64
	ProfitLoss     float64
	Equity         float64
}

// Journal receives trades and equity snapshots for export.
type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// FromFill builds the record for a fill executed at t.
func FromFill(f broker.Fill, basis float64, t time.Time) TradeRecord {
	return TradeRecord{
		TradeID:      f.TradeID,
		UserID:       f.UserID,
		InstrumentID: f.InstrumentID,
		Symbol:       f.Symbol,
		Side:         f.Side,
		Quantity:     f.Quantity,
		Price:        f.Price,
		Amount:       f.Amount,
		CostBasis:    basis,
		RealizedPL:   f.RealizedPL,
		Time:         t,
	}
}
