package sim

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rustyeddy/papertrader/market"
	"github.com/shopspring/decimal"
)

// Source yields uniform values in [0, 1).
type Source interface {
	Float64() float64
}

// NewSource returns a goroutine-safe PCG source. A zero seed picks one from
// the clock.
func NewSource(seed uint64) Source {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &lockedSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// nonZero draws from src until it gets a value other than zero.
func nonZero(src Source) float64 {
	for {
		if u := src.Float64(); u != 0 {
			return u
		}
	}
}

// NormalShock draws a standard normal value with the Box-Muller transform.
func NormalShock(src Source) float64 {
	u := nonZero(src)
	v := nonZero(src)
	return math.Sqrt(-2*math.Log(u)) * math.Cos(2*math.Pi*v)
}

// Model computes the next price of an instrument.
type Model interface {
	Name() string
	Next(price, volatility float64, src Source) float64
}

const (
	ModelLognormal  = "lognormal"
	ModelRandomWalk = "random_walk"
)

// Lognormal applies a multiplicative shock: price * exp(volatility * z).
// It is the default model.
type Lognormal struct{}

func (Lognormal) Name() string { return ModelLognormal }

func (Lognormal) Next(price, volatility float64, src Source) float64 {
	z := NormalShock(src)
	return price * math.Exp(volatility*z)
}

// RandomWalk moves the price by a uniform amount in [-volatility, +volatility)
// and rounds to cents. Unlike Lognormal its step does not scale with the
// price, so cheap instruments reach the floor much sooner. It exists for
// compatibility with the older additive engine and must be chosen explicitly.
type RandomWalk struct{}

func (RandomWalk) Name() string { return ModelRandomWalk }

func (RandomWalk) Next(price, volatility float64, src Source) float64 {
	if volatility == 0 {
		return price
	}
	next := price + volatility*src.Float64()*2 - volatility
	f, _ := decimal.NewFromFloat(next).Round(2).Float64()
	return f
}

// ModelByName resolves a configured model name. The empty name selects
// Lognormal.
func ModelByName(name string) (Model, error) {
	switch name {
	case "", ModelLognormal:
		return Lognormal{}, nil
	case ModelRandomWalk:
		return RandomWalk{}, nil
	}
	return nil, fmt.Errorf("unknown price model %q", name)
}

// Floor clamps price to at least min. NaN collapses to min as well.
func Floor(price, min float64) float64 {
	if min <= 0 {
		min = market.MinPrice
	}
	if math.IsNaN(price) || price < min {
		return min
	}
	return price
}
