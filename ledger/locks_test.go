package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockTable_MutualExclusion(t *testing.T) {
	t.Parallel()

	lt := newLockTable()
	key := positionKey{userID: 1, instrumentID: 2}

	var (
		inside   atomic.Int32
		overlaps atomic.Int32
		wg       sync.WaitGroup
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := lt.acquire(context.Background(), key)
			if !assert.NoError(t, err) {
				return
			}
			if inside.Add(1) > 1 {
				overlaps.Add(1)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			release()
		}()
	}
	wg.Wait()

	assert.Zero(t, overlaps.Load())
	assert.Zero(t, lt.size(), "entries are dropped once idle")
}

func TestLockTable_IndependentKeys(t *testing.T) {
	t.Parallel()

	lt := newLockTable()
	r1, err := lt.acquire(context.Background(), positionKey{1, 1})
	require.NoError(t, err)
	r2, err := lt.acquire(context.Background(), positionKey{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 2, lt.size())

	r1()
	r2()
	assert.Zero(t, lt.size())
}

func TestLockTable_DeadlineIsConflict(t *testing.T) {
	t.Parallel()

	lt := newLockTable()
	key := positionKey{1, 1}
	release, err := lt.acquire(context.Background(), key)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = lt.acquire(ctx, key)
	require.ErrorIs(t, err, broker.ErrConcurrencyConflict)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, lt.size(), "the waiter's reference is released")
}

func TestLockTable_CancelIsNotConflict(t *testing.T) {
	t.Parallel()

	lt := newLockTable()
	key := positionKey{1, 1}
	release, err := lt.acquire(context.Background(), key)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = lt.acquire(ctx, key)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, broker.ErrConcurrencyConflict)
}

func TestLockTable_ReleaseTwice(t *testing.T) {
	t.Parallel()

	lt := newLockTable()
	release, err := lt.acquire(context.Background(), positionKey{1, 1})
	require.NoError(t, err)
	release()
	release()
	assert.Zero(t, lt.size())

	release, err = lt.acquire(context.Background(), positionKey{1, 1})
	require.NoError(t, err)
	release()
}
