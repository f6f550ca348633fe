package market

// Position is a user's holding of one instrument. A position with zero
// quantity is never stored; it is removed instead.
type Position struct {
	UserID       int64
	InstrumentID int64
	Symbol       string
	Quantity     int64
	TotalCost    float64 // cumulative cost basis of the current holding
}

// AverageCost returns the cost basis per unit held.
func (p Position) AverageCost() float64 {
	if p.Quantity <= 0 {
		return 0
	}
	return p.TotalCost / float64(p.Quantity)
}

// MarketValue values the position at price.
func (p Position) MarketValue(price float64) float64 {
	return float64(p.Quantity) * price
}

// Buy adds qty units bought at price and returns the cost added to the basis.
func (p *Position) Buy(qty int64, price float64) float64 {
	cost := float64(qty) * price
	p.Quantity += qty
	p.TotalCost += cost
	return cost
}

// Sell removes qty units from the holding and returns the cost basis removed.
// The caller must check qty against Quantity first. When the holding is
// emptied the remaining basis is released in full.
func (p *Position) Sell(qty int64) float64 {
	if qty >= p.Quantity {
		basis := p.TotalCost
		p.Quantity = 0
		p.TotalCost = 0
		return basis
	}

	basis := p.AverageCost() * float64(qty)
	p.Quantity -= qty
	p.TotalCost -= basis

	// rounding can leave a tiny negative remainder
	if p.TotalCost < 0 {
		p.TotalCost = 0
	}
	return basis
}

// Closed reports whether the position no longer holds any units.
func (p Position) Closed() bool {
	return p.Quantity <= 0
}

// Holding is a position joined with the live price of its instrument.
type Holding struct {
	InstrumentID int64
	Symbol       string
	Quantity     int64
	AverageCost  float64
	CurrentPrice float64
	TotalCost    float64
	MarketValue  float64
	ProfitLoss   float64
}

// NewHolding values p at inst's current price.
func NewHolding(p Position, inst Instrument) Holding {
	value := p.MarketValue(inst.Price)
	return Holding{
		InstrumentID: p.InstrumentID,
		Symbol:       inst.Symbol,
		Quantity:     p.Quantity,
		AverageCost:  p.AverageCost(),
		CurrentPrice: inst.Price,
		TotalCost:    p.TotalCost,
		MarketValue:  value,
		ProfitLoss:   value - p.TotalCost,
	}
}
