package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/rustyeddy/papertrader/broker"
)

// positionKey identifies the row every Buy and Sell serializes on.
type positionKey struct {
	userID       int64
	instrumentID int64
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

// lockTable hands out one lock per position key. Entries are reference
// counted and dropped once nobody holds or waits for them, so the table only
// grows with the number of keys in flight.
type lockTable struct {
	mu    sync.Mutex
	locks map[positionKey]*keyLock
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[positionKey]*keyLock)}
}

// acquire blocks until the key is free or ctx is done. A deadline expiring
// while waiting is reported as ErrConcurrencyConflict; cancellation is
// returned as is.
func (t *lockTable) acquire(ctx context.Context, key positionKey) (func(), error) {
	t.mu.Lock()
	l, ok := t.locks[key]
	if !ok {
		l = &keyLock{sem: make(chan struct{}, 1)}
		t.locks[key] = l
	}
	l.refs++
	t.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-l.sem
				t.unref(key, l)
			})
		}, nil
	case <-ctx.Done():
		t.unref(key, l)
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("lock position %d/%d: %w: %w",
				key.userID, key.instrumentID, broker.ErrConcurrencyConflict, ctx.Err())
		}
		return nil, fmt.Errorf("lock position %d/%d: %w", key.userID, key.instrumentID, ctx.Err())
	}
}

func (t *lockTable) unref(key positionKey, l *keyLock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(t.locks, key)
	}
}

// size reports how many keys are currently tracked.
func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
