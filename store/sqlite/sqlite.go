package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/store"
)

// Options configures the SQLite store.
type Options struct {
	Path         string
	BusyTimeout  time.Duration // how long a writer waits for another process's lock
	MaxOpenConns int
}

// Store is a store.Store backed by a single SQLite database file.
//
// Every transaction is opened with BEGIN IMMEDIATE, so it holds the database
// write lock from its first statement: read-modify-write sequences on the
// same rows can never interleave, in this process or another one.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

func Open(opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, errors.New("sqlite: path is required")
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 1
	}

	db, err := sql.Open("sqlite3", dsn(opts))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func dsn(opts Options) string {
	return fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_txlock=immediate",
		opts.Path, opts.BusyTimeout.Milliseconds())
}

// DB exposes the underlying handle for maintenance and tests.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Update(ctx context.Context, fn func(store.Tx) error) error {
	return s.run(ctx, fn)
}

// View runs fn in a transaction as well; SQLite has no cheaper way to pin a
// consistent snapshot across several SELECTs.
func (s *Store) View(ctx context.Context, fn func(store.Tx) error) error {
	return s.run(ctx, fn)
}

func (s *Store) run(ctx context.Context, fn func(store.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr("begin", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	if err := fn(&tx{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return mapErr("commit", err)
	}
	committed = true
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// mapErr translates driver errors into the broker error kinds.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, broker.ErrNotFound)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var se sqlite3.Error
	if errors.As(err, &se) {
		switch {
		case se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked:
			return fmt.Errorf("%s: %w: %w", op, broker.ErrConcurrencyConflict, err)
		case se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%s: %w: already exists", op, broker.ErrValidation)
		case se.Code == sqlite3.ErrConstraint:
			return fmt.Errorf("%s: %w: %w", op, broker.ErrValidation, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, broker.ErrStorage, err)
}
