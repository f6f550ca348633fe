// Package sim drives instrument prices with a stochastic model.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/store"
)

// Config holds simulator settings.
type Config struct {
	Interval      time.Duration // time between ticks (default: 5s)
	MinPrice      float64       // price floor (default: 0.01)
	Model         string        // lognormal or random_walk
	UpdateTimeout time.Duration // per-instrument write timeout (default: 2s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:      5 * time.Second,
		MinPrice:      market.MinPrice,
		Model:         ModelLognormal,
		UpdateTimeout: 2 * time.Second,
	}
}

// TickReport summarizes one pass over the catalog.
type TickReport struct {
	At      time.Time
	Updated int
	Failed  int
}

// Simulator perturbs every instrument price once per Tick. Each instrument
// is re-read, repriced and written back in its own transaction, so a failure
// on one symbol never holds back or rolls back the others, and trades wait
// at most for a single short price write.
type Simulator struct {
	cfg    Config
	store  store.Store
	model  Model
	src    Source
	logger *slog.Logger
	clock  func() time.Time

	mu sync.Mutex // one tick at a time
}

// New creates a Simulator. src supplies the randomness; tests pass a fixed
// sequence.
func New(cfg Config, s store.Store, src Source, logger *slog.Logger) (*Simulator, error) {
	model, err := ModelByName(cfg.Model)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("sim: nil random source")
	}
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.MinPrice <= 0 {
		cfg.MinPrice = def.MinPrice
	}
	if cfg.UpdateTimeout <= 0 {
		cfg.UpdateTimeout = def.UpdateTimeout
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	return &Simulator{
		cfg:    cfg,
		store:  s,
		model:  model,
		src:    src,
		logger: logger,
		clock:  time.Now,
	}, nil
}

// SetClock replaces the time source used to stamp price updates.
func (s *Simulator) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

// Model returns the active price model.
func (s *Simulator) Model() Model { return s.model }

// Interval returns the configured time between ticks.
func (s *Simulator) Interval() time.Duration { return s.cfg.Interval }

// Tick updates every instrument's price once. Failures are logged per
// instrument and counted in the report; they never abort the tick.
func (s *Simulator) Tick(ctx context.Context) TickReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := TickReport{At: s.clock()}

	var instruments []market.Instrument
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		instruments, err = tx.Instruments(ctx)
		return err
	})
	if err != nil {
		s.logger.Error("list instruments failed", "error", err)
		return report
	}

	for _, in := range instruments {
		if ctx.Err() != nil {
			report.Failed += len(instruments) - report.Updated - report.Failed
			break
		}
		if err := s.step(ctx, in.ID, report.At); err != nil {
			report.Failed++
			s.logger.Warn("price update failed",
				"instrument", in.ID,
				"symbol", in.Symbol,
				"error", err,
			)
			continue
		}
		report.Updated++
	}

	s.logger.Debug("prices updated", "updated", report.Updated, "failed", report.Failed)
	return report
}

// step reprices one instrument inside its own transaction.
func (s *Simulator) step(ctx context.Context, instrumentID int64, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.UpdateTimeout)
	defer cancel()

	return s.store.Update(ctx, func(tx store.Tx) error {
		in, err := tx.Instrument(ctx, instrumentID)
		if err != nil {
			return err
		}
		next := Floor(s.model.Next(in.Price, in.Volatility, s.src), s.cfg.MinPrice)
		return tx.SetPrice(ctx, instrumentID, next, at)
	})
}
