// Package postgres implements store.Store on PostgreSQL through a pgx
// connection pool, for deployments where several processes trade against
// one database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/store"
)

// Options configures the PostgreSQL store. DSN wins over the individual
// connection fields when set.
type Options struct {
	DSN      string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
	MinConns int
	MaxConns int
}

// BuildConnString builds a PostgreSQL connection string from opts.
func BuildConnString(opts Options) string {
	if opts.DSN != "" {
		return opts.DSN
	}

	sslMode := opts.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}
	port := opts.Port
	if port == 0 {
		port = 5432
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(opts.User),
		url.QueryEscape(opts.Password),
		opts.Host,
		port,
		opts.Name,
		sslMode,
	)
}

// Store is a store.Store backed by a pgx pool.
//
// Update runs at READ COMMITTED and takes row locks with SELECT ... FOR
// UPDATE: the account row first, then the position row. Every writer locks
// in that order, so two trades touching the same account queue on the
// account row instead of deadlocking. View runs read-only at REPEATABLE
// READ so a valuation sees one snapshot of prices and positions.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// Open connects, pings and applies the schema.
func Open(ctx context.Context, opts Options) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(opts))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	if opts.MinConns > 0 {
		poolCfg.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConns > 0 {
		poolCfg.MaxConns = int32(opts.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Pool exposes the underlying pool for maintenance and tests.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) Update(ctx context.Context, fn func(store.Tx) error) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, true, fn)
}

func (s *Store) View(ctx context.Context, fn func(store.Tx) error) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, false, fn)
}

func (s *Store) run(ctx context.Context, opts pgx.TxOptions, forUpdate bool, fn func(store.Tx) error) error {
	pgTx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return mapErr("begin", err)
	}

	committed := false
	defer func() {
		if !committed {
			// Use a fresh context: ctx may already be cancelled.
			_ = pgTx.Rollback(context.Background())
		}
	}()

	if err := fn(&tx{tx: pgTx, forUpdate: forUpdate}); err != nil {
		return err
	}
	if err := pgTx.Commit(ctx); err != nil {
		return mapErr("commit", err)
	}
	committed = true
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// SQLSTATE codes the store maps to broker error kinds.
const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeNotNullViolation     = "23502"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// mapErr translates pgx errors into the broker error kinds.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, broker.ErrNotFound)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return fmt.Errorf("%s: %w: %w", op, broker.ErrConcurrencyConflict, err)
		case codeUniqueViolation:
			return fmt.Errorf("%s: %w: already exists", op, broker.ErrValidation)
		case codeCheckViolation, codeNotNullViolation:
			return fmt.Errorf("%s: %w: %w", op, broker.ErrValidation, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, broker.ErrStorage, err)
}
