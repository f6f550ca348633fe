package ledger

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/store"
)

// Instruments lists the catalog in ID order.
func (c *Coordinator) Instruments(ctx context.Context) ([]market.Instrument, error) {
	var out []market.Instrument
	err := c.view(ctx, "instruments", func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.Instruments(ctx)
		return err
	})
	return out, err
}

// Instrument returns one catalog entry.
func (c *Coordinator) Instrument(ctx context.Context, instrumentID int64) (market.Instrument, error) {
	var in market.Instrument
	err := c.view(ctx, "instrument", func(ctx context.Context, tx store.Tx) error {
		var err error
		in, err = tx.Instrument(ctx, instrumentID)
		return err
	})
	return in, err
}

// InstrumentBySymbol returns the catalog entry for symbol, case-insensitively.
func (c *Coordinator) InstrumentBySymbol(ctx context.Context, symbol string) (market.Instrument, error) {
	var in market.Instrument
	err := c.view(ctx, "instrument", func(ctx context.Context, tx store.Tx) error {
		var err error
		in, err = tx.InstrumentBySymbol(ctx, strings.ToUpper(strings.TrimSpace(symbol)))
		return err
	})
	return in, err
}

// AddInstrument lists a new symbol. Prices are driven by the simulator from
// then on.
func (c *Coordinator) AddInstrument(ctx context.Context, seed market.InstrumentSeed) (market.Instrument, error) {
	seed.Symbol = strings.ToUpper(strings.TrimSpace(seed.Symbol))
	if err := ValidateSeed(seed); err != nil {
		return market.Instrument{}, fmt.Errorf("add instrument: %w", err)
	}

	var in market.Instrument
	err := c.update(ctx, "add instrument", func(ctx context.Context, tx store.Tx) error {
		var err error
		in, err = tx.CreateInstrument(ctx, seed, c.now())
		return err
	})
	if err != nil {
		return market.Instrument{}, err
	}

	c.logger.Info("instrument listed", "id", in.ID, "symbol", in.Symbol, "price", in.Price)
	return in, nil
}

// ValidateSeed checks an instrument definition before it is stored.
func ValidateSeed(seed market.InstrumentSeed) error {
	switch {
	case seed.Symbol == "":
		return fmt.Errorf("%w: symbol is required", broker.ErrValidation)
	case math.IsNaN(seed.Price) || math.IsInf(seed.Price, 0) || seed.Price < market.MinPrice:
		return fmt.Errorf("%w: %s price must be at least %.2f", broker.ErrValidation, seed.Symbol, market.MinPrice)
	case math.IsNaN(seed.Volatility) || math.IsInf(seed.Volatility, 0) || seed.Volatility < 0:
		return fmt.Errorf("%w: %s volatility must be non-negative", broker.ErrValidation, seed.Symbol)
	}
	return nil
}
