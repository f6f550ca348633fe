package sim

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// TickHandler receives the report of every scheduled tick.
type TickHandler func(ctx context.Context, report TickReport)

// Runner invokes Simulator.Tick on a fixed cadence, independent of trade
// traffic.
type Runner struct {
	sim      *Simulator
	interval time.Duration
	onTick   TickHandler
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates a Runner. A non-positive interval uses the simulator's.
func NewRunner(sim *Simulator, interval time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = sim.Interval()
	}
	return &Runner{
		sim:      sim,
		interval: interval,
		logger:   logger,
	}
}

// OnTick registers fn to run after each scheduled tick. Must be called
// before Start.
func (r *Runner) OnTick(fn TickHandler) {
	r.onTick = fn
}

// Start begins the tick loop.
func (r *Runner) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.run()

	r.logger.Info("price simulator started",
		"interval", r.interval,
		"model", r.sim.Model().Name(),
	)
	return nil
}

// Stop ends the loop and waits for an in-flight tick to finish, or for ctx.
func (r *Runner) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("price simulator stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			report := r.sim.Tick(r.ctx)
			if r.onTick != nil {
				r.onTick(r.ctx, report)
			}
		}
	}
}
