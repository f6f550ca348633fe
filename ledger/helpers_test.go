package ledger

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/store"
	"github.com/rustyeddy/papertrader/store/sqlite"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 2, 3, 14, 30, 0, 0, time.UTC)

var dbSeq atomic.Int64

type fixture struct {
	c     *Coordinator
	store *sqlite.Store
}

func newFixture(t testing.TB, dir string, seeds ...market.InstrumentSeed) fixture {
	t.Helper()

	path := filepath.Join(dir, fmt.Sprintf("ledger-%d.db", dbSeq.Add(1)))
	s, err := sqlite.Open(sqlite.Options{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	if len(seeds) > 0 {
		_, err = store.Seed(context.Background(), s, seeds, epoch)
		require.NoError(t, err)
	}

	c := New(DefaultConfig(), s, nil)
	c.SetClock(func() time.Time { return epoch })
	return fixture{c: c, store: s}
}

// open creates a fixture with one instrument, ACME, priced at price.
func open(t *testing.T, price float64) (fixture, market.Account, market.Instrument) {
	t.Helper()

	f := newFixture(t, t.TempDir(), market.InstrumentSeed{Symbol: "ACME", Price: price, Volatility: 0.01})
	acct, err := f.c.OpenAccount(context.Background(), "alice")
	require.NoError(t, err)

	list, err := f.c.Instruments(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	return f, acct, list[0]
}

func (f fixture) setPrice(t testing.TB, instrumentID int64, price float64) {
	t.Helper()
	err := f.store.Update(context.Background(), func(tx store.Tx) error {
		return tx.SetPrice(context.Background(), instrumentID, price, epoch)
	})
	require.NoError(t, err)
}

func (f fixture) position(t testing.TB, userID, instrumentID int64) (market.Position, bool) {
	t.Helper()
	var (
		p  market.Position
		ok bool
	)
	err := f.store.View(context.Background(), func(tx store.Tx) error {
		var err error
		p, ok, err = tx.Position(context.Background(), userID, instrumentID)
		return err
	})
	require.NoError(t, err)
	return p, ok
}

func (f fixture) balance(t testing.TB, userID int64) float64 {
	t.Helper()
	b, err := f.c.Balance(context.Background(), userID)
	require.NoError(t, err)
	return b
}

func marketSeed(symbol string, price float64) market.InstrumentSeed {
	return market.InstrumentSeed{Symbol: symbol, Price: price, Volatility: 0.01}
}
