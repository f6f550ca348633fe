// market/instruments.go
package market

import "time"

// MinPrice is the lowest price an instrument can be quoted at.
const MinPrice = 0.01

// Instrument is a tradable symbol and its live quote.
type Instrument struct {
	ID          int64
	Symbol      string
	Price       float64
	Volatility  float64
	LastUpdated time.Time
}

// InstrumentSeed describes an instrument to create in an empty catalog.
type InstrumentSeed struct {
	Symbol     string  `json:"symbol" yaml:"symbol"`
	Price      float64 `json:"price" yaml:"price"`
	Volatility float64 `json:"volatility" yaml:"volatility"`
}

// DefaultInstruments is the catalog a fresh database is seeded with.
var DefaultInstruments = []InstrumentSeed{
	{Symbol: "AAPL", Price: 190.00, Volatility: 0.010},
	{Symbol: "MSFT", Price: 410.00, Volatility: 0.008},
	{Symbol: "NVDA", Price: 120.00, Volatility: 0.020},
	{Symbol: "TSLA", Price: 250.00, Volatility: 0.025},
	{Symbol: "KO", Price: 60.00, Volatility: 0.004},
}
