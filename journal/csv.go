// journal/csv.go
package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

var (
	tradeHeader  = []string{"trade_id", "user_id", "instrument_id", "symbol", "side", "quantity", "price", "amount", "cost_basis", "realized_pl", "time"}
	equityHeader = []string{"time", "user_id", "balance", "portfolio_value", "cost_basis", "profit_loss", "equity"}
)

// CSVJournal writes trades and equity snapshots to two CSV files. Either
// path may be empty, in which case records of that kind are dropped.
type CSVJournal struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

var _ Journal = (*CSVJournal)(nil)

func NewCSV(tradesPath, equityPath string) (*CSVJournal, error) {
	j := &CSVJournal{}

	if tradesPath != "" {
		tf, err := os.Create(tradesPath)
		if err != nil {
			return nil, err
		}
		j.tf = tf
		j.trades = csv.NewWriter(tf)
		if err := writeRow(j.trades, tradeHeader); err != nil {
			j.Close()
			return nil, err
		}
	}

	if equityPath != "" {
		ef, err := os.Create(equityPath)
		if err != nil {
			j.Close()
			return nil, err
		}
		j.ef = ef
		j.equity = csv.NewWriter(ef)
		if err := writeRow(j.equity, equityHeader); err != nil {
			j.Close()
			return nil, err
		}
	}

	return j, nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	if j.trades == nil {
		return nil
	}
	return writeRow(j.trades, []string{
		t.TradeID,
		itoa(t.UserID),
		itoa(t.InstrumentID),
		t.Symbol,
		string(t.Side),
		itoa(t.Quantity),
		f(t.Price),
		f(t.Amount),
		f(t.CostBasis),
		f(t.RealizedPL),
		t.Time.UTC().Format(time.RFC3339),
	})
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	if j.equity == nil {
		return nil
	}
	return writeRow(j.equity, []string{
		e.Time.UTC().Format(time.RFC3339),
		itoa(e.UserID),
		f(e.Balance),
		f(e.PortfolioValue),
		f(e.CostBasis),
		f(e.ProfitLoss),
		f(e.Equity),
	})
}

func (j *CSVJournal) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	if j.trades != nil {
		j.trades.Flush()
		keep(j.trades.Error())
	}
	if j.equity != nil {
		j.equity.Flush()
		keep(j.equity.Error())
	}
	if j.tf != nil {
		keep(j.tf.Close())
	}
	if j.ef != nil {
		keep(j.ef.Close())
	}
	return first
}

func writeRow(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

func itoa(x int64) string {
	return strconv.FormatInt(x, 10)
}
