package testing

import (
	"testing"
	"time"

	"github.com/rileyhilliard/cloudctl/internal/poller"
	"github.com/stretchr/testify/assert"
)

var _ poller.Clock = (*FakeClock)(nil)

func TestFakeClock_TickerAndTimer(t *testing.T) {
	c := NewFakeClock()
	start := c.Now()
	ticker := c.NewTicker(5 * time.Second)
	timer := c.NewTimer(12 * time.Second)

	c.Advance(4 * time.Second)
	assert.Empty(t, ticker.C())

	c.Advance(time.Second)
	assert.Equal(t, start.Add(5*time.Second), <-ticker.C())

	c.Advance(7 * time.Second)
	assert.Equal(t, start.Add(10*time.Second), <-ticker.C())
	assert.Equal(t, start.Add(12*time.Second), <-timer.C())
	assert.Equal(t, start.Add(12*time.Second), c.Now())
}

func TestFakeClock_DropsUnreadTicks(t *testing.T) {
	c := NewFakeClock()
	ticker := c.NewTicker(time.Second)

	c.Advance(3 * time.Second)

	assert.Len(t, ticker.C(), 1)
}

func TestFakeClock_StoppedTimerDoesNotFire(t *testing.T) {
	c := NewFakeClock()
	timer := c.NewTimer(time.Second)

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	c.Advance(2 * time.Second)
	assert.Empty(t, timer.C())
}

func TestFakeClock_Created(t *testing.T) {
	c := NewFakeClock()
	assert.Equal(t, 0, c.Created())
	c.NewTicker(time.Second)
	c.NewTimer(time.Second)
	c.BlockUntil(2)
	assert.Equal(t, 2, c.Created())
}
