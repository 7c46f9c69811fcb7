// Package throttle walks a list of items one at a time with a random pause
// after each, so a source never hits its platform in a tight loop.
package throttle

import (
	"context"
	"fmt"
	"math/rand"
	"runtime/debug"
	"sync"
	"time"

	"mediascraper/pkg/logger"
)

// SleepFunc pauses for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Iterator runs a function for each item sequentially with a jittered delay
// drawn from [min, max) after every item
type Iterator struct {
	min    time.Duration
	max    time.Duration
	sleep  SleepFunc
	logger logger.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option configures an Iterator
type Option func(*Iterator)

// WithSleep replaces the real clock sleep
func WithSleep(fn SleepFunc) Option {
	return func(it *Iterator) { it.sleep = fn }
}

// WithRand seeds the jitter source
func WithRand(r *rand.Rand) Option {
	return func(it *Iterator) { it.rnd = r }
}

// New creates an Iterator. If max < min the window collapses to min.
func New(min, max time.Duration, log logger.Logger, opts ...Option) *Iterator {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	it := &Iterator{
		min:    min,
		max:    max,
		sleep:  sleepContext,
		logger: logger.OrGlobal(log),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// Each calls fn for every item in order. A failing or panicking item is
// logged and does not stop the loop. Each returns only when ctx is done.
func (it *Iterator) Each(ctx context.Context, items []string, fn func(ctx context.Context, item string) error) error {
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := it.call(ctx, item, fn); err != nil {
			it.logger.WithError(err).WithField("tag", item).Error("Processing tag failed")
		}

		if err := it.sleep(ctx, it.Delay()); err != nil {
			return err
		}
	}
	return nil
}

func (it *Iterator) call(ctx context.Context, item string, fn func(context.Context, string) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			it.logger.WithField("stack", string(debug.Stack())).Debug("Recovered panic stack")
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, item)
}

// Delay draws the next pause from [min, max)
func (it *Iterator) Delay() time.Duration {
	span := it.max - it.min
	if span <= 0 {
		return it.min
	}
	it.mu.Lock()
	n := it.rnd.Int63n(int64(span))
	it.mu.Unlock()
	return it.min + time.Duration(n)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
