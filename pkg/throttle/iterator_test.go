package throttle

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediascraper/pkg/logger"
)

type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func TestEach_OrderAndDelays(t *testing.T) {
	s := &recordingSleeper{}
	it := New(time.Second, 2*time.Second, logger.NewNopLogger(),
		WithSleep(s.sleep), WithRand(rand.New(rand.NewSource(1))))

	var seen []string
	err := it.Each(context.Background(), []string{"a", "b", "c"}, func(_ context.Context, item string) error {
		seen = append(seen, item)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, seen)
	require.Len(t, s.delays, 3)
	for _, d := range s.delays {
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 2*time.Second)
	}
}

func TestEach_FailureDoesNotStopLoop(t *testing.T) {
	log := logger.NewTestLogger()
	s := &recordingSleeper{}
	it := New(0, 0, log, WithSleep(s.sleep))

	var seen []string
	err := it.Each(context.Background(), []string{"a", "b", "c"}, func(_ context.Context, item string) error {
		seen = append(seen, item)
		if item == "b" {
			return errors.New("page layout changed")
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, seen)
	errs := log.GetMessagesByLevel("ERROR")
	require.Len(t, errs, 1)
	assert.Equal(t, "b", errs[0].Fields["tag"])
}

func TestEach_PanicIsIsolated(t *testing.T) {
	log := logger.NewTestLogger()
	it := New(0, 0, log, WithSleep((&recordingSleeper{}).sleep))

	var seen []string
	err := it.Each(context.Background(), []string{"a", "b"}, func(_ context.Context, item string) error {
		if item == "a" {
			var m map[string]int
			m["boom"]++
		}
		seen = append(seen, item)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, seen)
	assert.True(t, log.HasError())
}

func TestEach_EmptyInput(t *testing.T) {
	s := &recordingSleeper{}
	it := New(time.Second, 2*time.Second, nil, WithSleep(s.sleep))

	called := false
	err := it.Each(context.Background(), nil, func(context.Context, string) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Empty(t, s.delays)
}

func TestEach_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	it := New(time.Hour, 2*time.Hour, logger.NewNopLogger())

	var seen []string
	err := it.Each(ctx, []string{"a", "b"}, func(_ context.Context, item string) error {
		seen = append(seen, item)
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a"}, seen)
}

func TestDelay_CollapsedWindow(t *testing.T) {
	it := New(3*time.Second, time.Second, nil)
	assert.Equal(t, 3*time.Second, it.Delay())
}
