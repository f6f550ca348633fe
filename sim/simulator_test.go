package sim

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/store"
	"github.com/rustyeddy/papertrader/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)

func openStore(t *testing.T, seeds ...market.InstrumentSeed) *sqlite.Store {
	t.Helper()

	s, err := sqlite.Open(sqlite.Options{Path: filepath.Join(t.TempDir(), "sim.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	if len(seeds) > 0 {
		n, err := store.Seed(context.Background(), s, seeds, epoch)
		require.NoError(t, err)
		require.Equal(t, len(seeds), n)
	}
	return s
}

func prices(t *testing.T, s store.Store) map[string]market.Instrument {
	t.Helper()

	out := make(map[string]market.Instrument)
	err := s.View(context.Background(), func(tx store.Tx) error {
		list, err := tx.Instruments(context.Background())
		for _, in := range list {
			out[in.Symbol] = in
		}
		return err
	})
	require.NoError(t, err)
	return out
}

func newSim(t *testing.T, s store.Store, cfg Config, src Source) *Simulator {
	t.Helper()

	sm, err := New(cfg, s, src, nil)
	require.NoError(t, err)
	sm.SetClock(func() time.Time { return epoch.Add(time.Minute) })
	return sm
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	s := openStore(t)

	_, err := New(Config{Model: "nope"}, s, NewSource(1), nil)
	require.Error(t, err)

	_, err = New(DefaultConfig(), s, nil, nil)
	require.Error(t, err)
}

func TestTick_ZeroVolatilityLeavesPrice(t *testing.T) {
	t.Parallel()

	s := openStore(t, market.InstrumentSeed{Symbol: "FLAT", Price: 42.42, Volatility: 0})
	sm := newSim(t, s, DefaultConfig(), NewSource(3))

	for i := 0; i < 5; i++ {
		report := sm.Tick(context.Background())
		assert.Equal(t, 1, report.Updated)
		assert.Zero(t, report.Failed)
	}

	in := prices(t, s)["FLAT"]
	assert.Equal(t, 42.42, in.Price)
	assert.True(t, in.LastUpdated.Equal(epoch.Add(time.Minute)), "last updated %v", in.LastUpdated)
}

func TestTick_MovesPricesAndStaysPositive(t *testing.T) {
	t.Parallel()

	s := openStore(t, market.DefaultInstruments...)
	sm := newSim(t, s, DefaultConfig(), NewSource(99))
	before := prices(t, s)

	for i := 0; i < 50; i++ {
		report := sm.Tick(context.Background())
		require.Equal(t, len(market.DefaultInstruments), report.Updated)
	}

	after := prices(t, s)
	moved := 0
	for sym, in := range after {
		assert.GreaterOrEqual(t, in.Price, market.MinPrice, sym)
		if in.Price != before[sym].Price {
			moved++
		}
	}
	assert.Equal(t, len(after), moved)
}

func TestTick_FloorsAtMinimum(t *testing.T) {
	t.Parallel()

	s := openStore(t, market.InstrumentSeed{Symbol: "PENNY", Price: 0.02, Volatility: 5})
	// u near zero with v = 0.5 is a large negative shock under either model.
	src := &seqSource{vals: []float64{1e-6, 0.5}}
	sm := newSim(t, s, Config{Model: ModelRandomWalk}, src)

	sm.Tick(context.Background())
	assert.Equal(t, market.MinPrice, prices(t, s)["PENNY"].Price)

	sm2 := newSim(t, s, DefaultConfig(), &seqSource{vals: []float64{1e-6, 0.5}})
	sm2.Tick(context.Background())
	assert.Equal(t, market.MinPrice, prices(t, s)["PENNY"].Price)
}

// flakyStore fails the price write for one instrument.
type flakyStore struct {
	store.Store
	failID int64
	calls  atomic.Int32
}

type flakyTx struct {
	store.Tx
	failID int64
}

var errBoom = errors.New("boom")

func (t flakyTx) SetPrice(ctx context.Context, id int64, price float64, at time.Time) error {
	if id == t.failID {
		return errBoom
	}
	return t.Tx.SetPrice(ctx, id, price, at)
}

func (s *flakyStore) Update(ctx context.Context, fn func(store.Tx) error) error {
	s.calls.Add(1)
	return s.Store.Update(ctx, func(tx store.Tx) error {
		return fn(flakyTx{Tx: tx, failID: s.failID})
	})
}

func TestTick_IsolatesFailures(t *testing.T) {
	t.Parallel()

	base := openStore(t,
		market.InstrumentSeed{Symbol: "AAA", Price: 10, Volatility: 0.05},
		market.InstrumentSeed{Symbol: "BBB", Price: 20, Volatility: 0.05},
		market.InstrumentSeed{Symbol: "CCC", Price: 30, Volatility: 0.05},
	)
	before := prices(t, base)

	fs := &flakyStore{Store: base, failID: before["BBB"].ID}
	sm := newSim(t, fs, DefaultConfig(), NewSource(5))

	report := sm.Tick(context.Background())
	assert.Equal(t, 2, report.Updated)
	assert.Equal(t, 1, report.Failed)
	assert.EqualValues(t, 3, fs.calls.Load(), "one transaction per instrument")

	after := prices(t, base)
	assert.Equal(t, before["BBB"].Price, after["BBB"].Price)
	assert.True(t, after["BBB"].LastUpdated.Equal(epoch))
	assert.NotEqual(t, before["AAA"].Price, after["AAA"].Price)
	assert.NotEqual(t, before["CCC"].Price, after["CCC"].Price)
}

func TestTick_CancelledContext(t *testing.T) {
	t.Parallel()

	s := openStore(t, market.DefaultInstruments...)
	sm := newSim(t, s, DefaultConfig(), NewSource(5))
	before := prices(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := sm.Tick(ctx)
	assert.Zero(t, report.Updated)
	assert.Equal(t, before, prices(t, s))
}

func TestRunner_TicksAndStops(t *testing.T) {
	t.Parallel()

	s := openStore(t, market.InstrumentSeed{Symbol: "RUN", Price: 50, Volatility: 0.01})
	sm := newSim(t, s, DefaultConfig(), NewSource(11))

	r := NewRunner(sm, 10*time.Millisecond, nil)
	ticks := make(chan TickReport, 16)
	r.OnTick(func(_ context.Context, report TickReport) {
		select {
		case ticks <- report:
		default:
		}
	})

	require.NoError(t, r.Start(context.Background()))

	for i := 0; i < 3; i++ {
		select {
		case report := <-ticks:
			assert.Equal(t, 1, report.Updated)
		case <-time.After(5 * time.Second):
			t.Fatal("runner did not tick")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))
}

func TestNewRunner_DefaultsInterval(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	sm := newSim(t, s, Config{Interval: 3 * time.Second}, NewSource(1))
	r := NewRunner(sm, 0, nil)
	assert.Equal(t, 3*time.Second, r.interval)
}
