package id

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsParseable(t *testing.T) {
	t.Parallel()

	s := New()
	assert.Len(t, s, 26)
	_, err := ulid.Parse(s)
	assert.NoError(t, err)
}

func TestAtCarriesTimestamp(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	u, err := ulid.Parse(At(ts))
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(ts), u.Time())
}

// Not parallel: a concurrent call at another timestamp resets the entropy.
func TestSameMillisecondIsMonotonic(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	prev := At(ts)
	for i := 0; i < 100; i++ {
		next := At(ts)
		assert.Less(t, prev, next)
		prev = next
	}
}
