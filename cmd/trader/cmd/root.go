package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/config"
	"github.com/rustyeddy/papertrader/ledger"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/store"
	"github.com/rustyeddy/papertrader/store/postgres"
	"github.com/rustyeddy/papertrader/store/sqlite"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trader",
	Short: "A paper trading simulator with a stochastic market",
	Long: `Trader runs a simulated stock market and lets users trade it with play money.

It provides tools for:
  - Driving instrument prices with a lognormal or random walk model
  - Opening accounts and funding them
  - Buying and selling at the live simulated price
  - Valuing portfolios with average-cost P/L
  - Exporting the trade journal and equity curve

State lives in SQLite by default, or PostgreSQL for multi-process setups.`,
	SilenceUsage: true,
}

var (
	cfgFile string
	dbPath  string
)

var nowFunc = time.Now

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && broker.Retryable(err) {
		fmt.Fprintln(os.Stderr, "the account is busy, try again")
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults are used when empty")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides database.path)")
}

// loadConfig reads --config or falls back to defaults, then applies --db.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		var err error
		if cfg, err = config.LoadFromFile(cfgFile); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if dbPath != "" {
		cfg.Database.Driver = "sqlite"
		cfg.Database.Path = dbPath
	}
	return cfg, nil
}

// openStore opens the configured store and seeds an empty catalog.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	var (
		s   store.Store
		err error
	)
	switch cfg.Database.Driver {
	case "postgres":
		s, err = postgres.Open(ctx, postgres.Options{
			DSN:      cfg.Database.DSN,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Name:     cfg.Database.Name,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: cfg.Database.MaxConns,
		})
	default:
		busy, _ := cfg.Database.BusyTimeoutDuration()
		s, err = sqlite.Open(sqlite.Options{
			Path:         cfg.Database.Path,
			BusyTimeout:  busy,
			MaxOpenConns: cfg.Database.MaxConns,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}

	n, err := store.Seed(ctx, s, cfg.Instruments, nowFunc())
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("seed instruments: %w", err)
	}
	if n > 0 {
		logger.Info("catalog seeded", "instruments", n)
	}
	return s, nil
}

// app bundles what every trading command needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  store.Store
	ledger *ledger.Coordinator
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	s, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:    cfg,
		logger: logger,
		store:  s,
		ledger: ledger.New(cfg.LedgerSettings(), s, logger),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func (a *app) money(x float64) string {
	return market.FormatCash(x, a.ledger.Currency())
}

// resolveUser accepts a numeric user ID or a username.
func (a *app) resolveUser(ctx context.Context, arg string) (market.Account, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return a.ledger.Account(ctx, id)
	}
	return a.ledger.AccountByUsername(ctx, arg)
}

// resolveInstrument accepts a numeric instrument ID or a symbol.
func (a *app) resolveInstrument(ctx context.Context, arg string) (market.Instrument, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return a.ledger.Instrument(ctx, id)
	}
	return a.ledger.InstrumentBySymbol(ctx, arg)
}

// explain prefixes err with a short message for its kind.
func explain(err error) error {
	if err == nil {
		return nil
	}
	var msg string
	switch {
	case errors.Is(err, broker.ErrInsufficientFunds):
		msg = "not enough cash"
	case errors.Is(err, broker.ErrInsufficientShares):
		msg = "not enough shares"
	case errors.Is(err, broker.ErrNotFound):
		msg = "no such account or instrument"
	case errors.Is(err, broker.ErrValidation):
		msg = "invalid request"
	case errors.Is(err, broker.ErrConcurrencyConflict):
		msg = "conflicting trade in progress"
	default:
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}
