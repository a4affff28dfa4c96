// Copyright 2025 Nhat-Nguyen Nguyen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var _ RateLimiter = (*TokenBucketRateLimiter)(nil)

// TokenBucketRateLimiter is a process-local limiter for deployments that run
// without a shared counter store. Each key gets its own bucket with burst
// capacity equal to the limit, refilled evenly across the window.
//
// State lives in this process only; replicas each enforce the full limit.
type TokenBucketRateLimiter struct {
	mu sync.Mutex
	// TODO: evict buckets idle for more than one window
	buckets map[Key]*rate.Limiter

	limit  int64
	window time.Duration
}

func TokenBucketFactory() LimiterFactory {
	return func(l int64, w time.Duration) RateLimiter {
		return &TokenBucketRateLimiter{
			buckets: make(map[Key]*rate.Limiter),
			limit:   l,
			window:  w,
		}
	}
}

// Allow implements RateLimiter.
func (t *TokenBucketRateLimiter) Allow(_ context.Context, key Key) (Result, error) {
	t.mu.Lock()
	lim, ok := t.buckets[key]
	if !ok {
		refill := rate.Limit(float64(t.limit) / t.window.Seconds())
		lim = rate.NewLimiter(refill, int(t.limit))
		t.buckets[key] = lim
	}
	t.mu.Unlock()

	allowed := lim.Allow()

	remaining := int64(lim.Tokens())
	if remaining < 0 {
		remaining = 0
	}

	result := Result{
		Allowed:       allowed,
		Remaining:     remaining,
		Limit:         t.limit,
		Window:        t.window,
		WindowResetIn: t.window,
	}
	if !allowed {
		// time until one token refills
		result.RetryAfter = time.Duration(float64(t.window) / float64(t.limit))
	}
	return result, nil
}
