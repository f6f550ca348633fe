package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// seqSource replays a fixed sequence of uniforms, wrapping around.
type seqSource struct {
	vals []float64
	i    int
}

func (s *seqSource) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

func TestNormalShock_SkipsZero(t *testing.T) {
	t.Parallel()

	src := &seqSource{vals: []float64{0, 0.5, 0, 0.25}}
	z := NormalShock(src)

	// u = 0.5, v = 0.25: cos(pi/2) is zero up to rounding.
	assert.InDelta(t, 0, z, 1e-12)
	assert.Equal(t, 4, src.i)
}

func TestNormalShock_KnownValue(t *testing.T) {
	t.Parallel()

	src := &seqSource{vals: []float64{math.Exp(-0.5), 1.0 / 2}}
	// sqrt(-2 * -0.5) * cos(pi) = -1
	assert.InDelta(t, -1, NormalShock(src), 1e-12)
}

func TestNormalShock_Finite(t *testing.T) {
	t.Parallel()

	src := NewSource(42)
	for i := 0; i < 10000; i++ {
		z := NormalShock(src)
		require.False(t, math.IsNaN(z) || math.IsInf(z, 0), "draw %d", i)
	}
}

func TestNewSource_Deterministic(t *testing.T) {
	t.Parallel()

	a, b := NewSource(7), NewSource(7)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Float64(), b.Float64())
	}
}

func TestLognormal_ZeroVolatilityKeepsPrice(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		price := rapid.Float64Range(0.01, 1e6).Draw(t, "price")
		src := &seqSource{vals: []float64{
			rapid.Float64Range(1e-9, 0.999).Draw(t, "u"),
			rapid.Float64Range(0, 0.999).Draw(t, "v"),
		}}
		if got := (Lognormal{}).Next(price, 0, src); got != price {
			t.Fatalf("price moved with zero volatility: %v -> %v", price, got)
		}
	})
}

func TestLognormal_StaysPositive(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		price := rapid.Float64Range(0.01, 1e6).Draw(t, "price")
		vol := rapid.Float64Range(0, 0.5).Draw(t, "vol")
		src := &seqSource{vals: []float64{
			rapid.Float64Range(1e-9, 0.999).Draw(t, "u"),
			rapid.Float64Range(0, 0.999).Draw(t, "v"),
		}}
		next := Floor((Lognormal{}).Next(price, vol, src), 0.01)
		if !(next >= 0.01) {
			t.Fatalf("price %v below floor", next)
		}
	})
}

func TestRandomWalk(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		price float64
		vol   float64
		u     float64
		want  float64
	}{
		{"midpoint", 100, 1, 0.5, 100},
		{"lower edge", 100, 1, 0, 99},
		{"upward", 100, 2, 0.75, 101},
		{"rounds to cents", 10, 0.333, 0.9, 10.27},
		{"zero volatility keeps odd price", 10.005, 0, 0.9, 10.005},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &seqSource{vals: []float64{tt.u}}
			assert.InDelta(t, tt.want, (RandomWalk{}).Next(tt.price, tt.vol, src), 1e-9)
		})
	}
}

func TestModelByName(t *testing.T) {
	t.Parallel()

	m, err := ModelByName("")
	require.NoError(t, err)
	assert.Equal(t, ModelLognormal, m.Name())

	m, err = ModelByName("random_walk")
	require.NoError(t, err)
	assert.Equal(t, ModelRandomWalk, m.Name())

	_, err = ModelByName("brownian")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brownian")
}

func TestFloor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.01, Floor(0.001, 0.01))
	assert.Equal(t, 0.01, Floor(-5, 0.01))
	assert.Equal(t, 0.01, Floor(math.NaN(), 0.01))
	assert.Equal(t, 0.01, Floor(0, 0))
	assert.Equal(t, 12.5, Floor(12.5, 0.01))
	assert.Equal(t, 1.0, Floor(0.5, 1))
}
