package utils

import (
	"sync"
	"time"
)

// RateLimiter 令牌桶，桶容量为 rate*burst，按经过的时间补充令牌
type RateLimiter struct {
	mu       sync.Mutex
	perSec   float64
	capacity float64
	tokens   float64
	last     time.Time
	now      func() time.Time
}

// NewRateLimiter rate: 每秒放行数，burst: 突发倍数
func NewRateLimiter(rate int, burst int) *RateLimiter {
	return newRateLimiter(rate, burst, time.Now)
}

func newRateLimiter(rate, burst int, now func() time.Time) *RateLimiter {
	capacity := float64(rate * burst)
	return &RateLimiter{
		perSec:   float64(rate),
		capacity: capacity,
		tokens:   capacity,
		last:     now(),
		now:      now,
	}
}

func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	t := rl.now()
	if elapsed := t.Sub(rl.last); elapsed > 0 {
		rl.tokens = min(rl.capacity, rl.tokens+elapsed.Seconds()*rl.perSec)
	}
	rl.last = t

	if rl.tokens < 1 {
		return false
	}
	rl.tokens--
	return true
}
