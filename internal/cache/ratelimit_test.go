package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterCeiling(t *testing.T) {
	l := NewRateLimiter(DefaultWindow)

	for i := 0; i < 3; i++ {
		assert.True(t, l.CanCall("structured", 3))
		l.RecordCall("structured")
	}
	assert.False(t, l.CanCall("structured", 3))

	// Another source is counted independently.
	assert.True(t, l.CanCall("rendering", 3))
}

func TestRateLimiterWindowAging(t *testing.T) {
	l := NewRateLimiter(30 * time.Millisecond)

	l.RecordCall("stealth")
	l.RecordCall("stealth")
	assert.False(t, l.CanCall("stealth", 2))

	time.Sleep(40 * time.Millisecond)
	assert.True(t, l.CanCall("stealth", 2), "calls outside the window no longer count")
}

func TestTryAcquire(t *testing.T) {
	l := NewRateLimiter(DefaultWindow)

	assert.True(t, l.TryAcquire("structured", 2))
	assert.True(t, l.TryAcquire("structured", 2))
	assert.False(t, l.TryAcquire("structured", 2))
}

func TestTryAcquireConcurrent(t *testing.T) {
	l := NewRateLimiter(DefaultWindow)
	const limit = 10

	var wg sync.WaitGroup
	granted := make(chan struct{}, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryAcquire("structured", limit) {
				granted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(granted)

	assert.Equal(t, limit, len(granted), "concurrent acquires must not overshoot the ceiling")
}
