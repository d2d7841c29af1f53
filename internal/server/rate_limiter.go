// Package server applies per-connection message throttling that protects
// the hub from abuse.
package server

import (
	"time"

	"golang.org/x/time/rate"
)

// newRateLimiter builds a token bucket that admits at most burst messages
// per refill interval, with the full burst available up front.
func newRateLimiter(burst int, interval time.Duration) *rate.Limiter {
	if burst <= 0 {
		burst = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	return rate.NewLimiter(rate.Limit(float64(burst)/interval.Seconds()), burst)
}
