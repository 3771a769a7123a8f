// Copyright (c) 2026 John Earle
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

package llm

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Limiter gates outbound model calls.
type Limiter interface {
	Wait(ctx context.Context) error
}

// TokenBucket implements a simple fixed-rate token bucket limiter.
type TokenBucket struct {
	ticker   *time.Ticker
	tokens   chan struct{}
	stop     chan struct{}
	stopDone chan struct{}
}

// NewTokenBucket returns a limiter that releases rps tokens per second.
// Fractional rates are allowed; 0.5 releases one token every two seconds.
func NewTokenBucket(rps float64) *TokenBucket {
	if rps <= 0 {
		rps = 1
	}
	burst := int(math.Ceil(rps))
	tb := &TokenBucket{
		ticker:   time.NewTicker(time.Duration(float64(time.Second) / rps)),
		tokens:   make(chan struct{}, burst),
		stop:     make(chan struct{}),
		stopDone: make(chan struct{}),
	}
	// allow the first call to proceed immediately
	tb.tokens <- struct{}{}
	go tb.run()
	return tb
}

func (t *TokenBucket) run() {
	defer close(t.stopDone)
	for {
		select {
		case <-t.stop:
			return
		case <-t.ticker.C:
			select {
			case t.tokens <- struct{}{}:
			default:
			}
		}
	}
}

// Wait blocks until a token is available or the context is canceled.
func (t *TokenBucket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate wait canceled: %w", ctx.Err())
	case <-t.tokens:
		return nil
	}
}

// Stop releases resources held by the limiter.
func (t *TokenBucket) Stop() {
	t.ticker.Stop()
	close(t.stop)
	<-t.stopDone
}

var _ Limiter = (*TokenBucket)(nil)

// RateLimited waits on a Limiter before every call to the wrapped Generator.
type RateLimited struct {
	next    Generator
	limiter Limiter
}

// NewRateLimited wraps next with limiter.
func NewRateLimited(next Generator, limiter Limiter) *RateLimited {
	return &RateLimited{next: next, limiter: limiter}
}

// Generate implements Generator.
func (r *RateLimited) Generate(ctx context.Context, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.next.Generate(ctx, prompt)
}

// WithTimeout bounds every call to next by d. A non-positive d returns next
// unchanged.
func WithTimeout(next Generator, d time.Duration) Generator {
	if d <= 0 {
		return next
	}
	return GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next.Generate(ctx, prompt)
	})
}
