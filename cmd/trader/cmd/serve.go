package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/sim"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the price simulator until interrupted",
	Long: `Start the price simulator. Every interval each instrument's price is moved
by the configured model in its own transaction. Trading commands can run
against the same database while serve is up.

When journal.equity_file is set, an equity snapshot of every account is
appended after each tick.

Example:
  trader serve -c trader.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveInterval time.Duration

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().DurationVarP(&serveInterval, "interval", "i", 0, "tick interval (overrides simulator.interval)")
}

func newSimulator(a *app) (*sim.Simulator, error) {
	return sim.New(a.cfg.SimulatorSettings(), a.store, sim.NewSource(a.cfg.Simulator.Seed), a.logger)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := newSimulator(a)
	if err != nil {
		return err
	}

	runner := sim.NewRunner(s, serveInterval, a.logger)

	if path := a.cfg.Journal.EquityFile; path != "" {
		j, err := journal.NewCSV("", path)
		if err != nil {
			return fmt.Errorf("create equity journal: %w", err)
		}
		defer j.Close()

		runner.OnTick(func(ctx context.Context, _ sim.TickReport) {
			snaps, err := a.ledger.Snapshots(ctx)
			if err != nil {
				a.logger.Warn("equity snapshot failed", "error", err)
				return
			}
			for _, e := range snaps {
				if err := j.RecordEquity(e); err != nil {
					a.logger.Warn("record equity failed", "user", e.UserID, "error", err)
				}
			}
		})
	}

	list, err := a.ledger.Instruments(ctx)
	if err != nil {
		return explain(err)
	}

	if err := runner.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("Simulating %d instruments with the %s model, Ctrl-C to stop\n", len(list), s.Model().Name())

	<-ctx.Done()

	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return runner.Stop(shutdown)
}
