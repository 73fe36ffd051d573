package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_BlocksOverLimitWithinWindow(t *testing.T) {
	l := newLimiter(3, time.Minute, "too many")

	for i := 0; i < 3; i++ {
		ok, _ := l.allow("10.0.0.1")
		assert.True(t, ok, "request %d should pass", i+1)
	}
	ok, until := l.allow("10.0.0.1")
	assert.False(t, ok)
	assert.True(t, until.After(time.Now()))

	// other IPs keep their own window
	ok, _ = l.allow("10.0.0.2")
	assert.True(t, ok)
}

func TestLimiter_WindowResetsAfterPeriod(t *testing.T) {
	l := newLimiter(1, 10*time.Millisecond, "too many")

	ok, _ := l.allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.allow("10.0.0.1")
	assert.False(t, ok)

	time.Sleep(15 * time.Millisecond)
	ok, _ = l.allow("10.0.0.1")
	assert.True(t, ok)
}

func TestLimiter_PurgeDropsExpiredWindows(t *testing.T) {
	l := newLimiter(5, time.Millisecond, "too many")
	l.allow("10.0.0.1")
	l.allow("10.0.0.2")
	assert.Len(t, l.windows, 2)

	time.Sleep(2 * time.Millisecond)

	// Backdate the purge clock so the next allow sweeps immediately.
	l.mu.Lock()
	l.lastPurge = time.Now().Add(-purgeInterval)
	l.mu.Unlock()

	l.allow("10.0.0.3")

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.windows, 1)
	assert.Contains(t, l.windows, "10.0.0.3")
}
