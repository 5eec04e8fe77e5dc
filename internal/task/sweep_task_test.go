package task

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thailao_logistics/internal/middleware"
)

func TestSweepTask_RunOnce(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	limiter := middleware.NewMemoryRateLimiter().WithClock(func() time.Time { return now })
	cfg := middleware.RateLimitConfig{Window: time.Minute, MaxRequests: 5}

	_, err := limiter.Check(t.Context(), "login:1.1.1.1", cfg)
	require.NoError(t, err)
	_, err = limiter.Check(t.Context(), "login:2.2.2.2", cfg)
	require.NoError(t, err)

	task := NewSweepTask("").
		Register("limiter", limiter).
		Register("tokens", SweeperFunc(func() int { return 3 }))

	// 窗口未过期
	got := task.RunOnce()
	assert.Equal(t, 0, got["limiter"])
	assert.Equal(t, 3, got["tokens"])
	assert.Equal(t, 2, limiter.Len())

	now = now.Add(2 * time.Minute)
	got = task.RunOnce()
	assert.Equal(t, 2, got["limiter"])
	assert.Equal(t, 0, limiter.Len())
}

func TestSweepTask_PanicIsContained(t *testing.T) {
	var calls atomic.Int32
	task := NewSweepTask("").
		Register("broken", SweeperFunc(func() int { panic("boom") })).
		Register("ok", SweeperFunc(func() int { calls.Add(1); return 1 }))

	got := task.RunOnce()
	assert.Equal(t, 0, got["broken"])
	assert.Equal(t, 1, got["ok"])
	assert.EqualValues(t, 1, calls.Load())
}

func TestSweepTask_StartStop(t *testing.T) {
	var calls atomic.Int32
	task := NewSweepTask("* * * * * *").
		Register("counter", SweeperFunc(func() int { calls.Add(1); return 0 }))

	require.NoError(t, task.Start())
	// 重复启动无副作用
	require.NoError(t, task.Start())

	assert.Eventually(t, func() bool { return calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	task.Stop()
	task.Stop()
}

func TestSweepTask_InvalidSpec(t *testing.T) {
	task := NewSweepTask("not a cron")
	assert.Error(t, task.Start())
}
