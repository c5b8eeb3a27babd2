// FILE: logweave/src/internal/ratelimit/limiter_test.go
package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	l, err := New(Config{})
	require.NoError(t, err)
	assert.Nil(t, l)
	assert.True(t, l.Allow())
	assert.Equal(t, false, l.Stats()["enabled"])

	_, err = New(Config{Rate: -1})
	assert.Error(t, err)
}

func TestLimiter_Allow(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l, err := NewWithClock(Config{Rate: 10}, func() time.Time { return now })
	require.NoError(t, err)

	passed := 0
	for i := 0; i < 15; i++ {
		if l.Allow() {
			passed++
		}
	}
	assert.Equal(t, 10, passed)

	now = now.Add(200 * time.Millisecond)
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())

	stats := l.Stats()
	assert.Equal(t, uint64(6), stats["dropped_total"])
	assert.Equal(t, 10.0, stats["burst"])
}
