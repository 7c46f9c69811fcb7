package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediascraper/pkg/config"
	"mediascraper/pkg/logger"
	"mediascraper/pkg/runner"
	"mediascraper/pkg/store"
)

func TestScheduleRunsImmediatelyOutsideProduction(t *testing.T) {
	tests := []struct {
		environment string
		wantRun     bool
	}{
		{"development", true},
		{"staging", true},
		{config.EnvProduction, false},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.App.Environment = tt.environment
			cfg.Store.Driver = config.StoreDriverMemory

			log := logger.NewTestLogger()
			r := runner.NewFromConfig(cfg, store.NewMemoryStore(store.Keys{}), nil, log)

			ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
			defer cancel()
			require.NoError(t, schedule(ctx, cfg, r, log))

			assert.Equal(t, tt.wantRun, log.HasMessage("Scrape run started"), log.String())
			assert.True(t, log.HasMessage("Component started"), log.String())
		})
	}
}

// blockingStore holds Tags until release is closed
type blockingStore struct {
	*store.MemoryStore
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStore) Tags(ctx context.Context) ([]string, error) {
	close(s.entered)
	<-s.release
	return s.MemoryStore.Tags(ctx)
}

func TestScrapeJobSkipsOverlappingRun(t *testing.T) {
	st := &blockingStore{
		MemoryStore: store.NewMemoryStore(store.Keys{}),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	log := logger.NewTestLogger()
	r := runner.New(st, nil, log)

	first := make(chan error, 1)
	go func() {
		_, err := r.RunOnce(context.Background())
		first <- err
	}()
	<-st.entered
	require.True(t, r.Running())

	_, err := r.RunOnce(context.Background())
	assert.ErrorIs(t, err, runner.ErrRunInProgress)
	assert.NoError(t, scrapeJob(r)(context.Background()))

	close(st.release)
	require.NoError(t, <-first)
	assert.False(t, r.Running())
}
