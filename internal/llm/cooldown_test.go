package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestCooldownRefusesEarlyCalls(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	cd := NewCooldown(10*time.Second, clock.Now)

	require.NoError(t, cd.Take(), "first call is always admitted")

	clock.now = clock.now.Add(time.Second)
	err := cd.Take()
	assert.ErrorIs(t, err, ErrRateLimited)

	clock.now = clock.now.Add(11 * time.Second)
	assert.NoError(t, cd.Take())
}

func TestCooldownInstancesAreIndependent(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	a := NewCooldown(time.Minute, clock.Now)
	b := NewCooldown(time.Minute, clock.Now)

	require.NoError(t, a.Take())
	assert.ErrorIs(t, a.Take(), ErrRateLimited)
	assert.NoError(t, b.Take())
}

func TestZeroCooldownNeverRefuses(t *testing.T) {
	cd := NewCooldown(0, nil)
	for i := 0; i < 50; i++ {
		require.NoError(t, cd.Take())
	}
	assert.Equal(t, time.Duration(0), cd.Interval())
}

func TestCooldownWaitHonoursContext(t *testing.T) {
	cd := NewCooldown(time.Hour, nil)
	require.NoError(t, cd.Take())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, cd.Wait(ctx))
}
