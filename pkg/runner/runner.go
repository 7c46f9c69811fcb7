// Package runner performs one firing of the pipeline: read the tags, run
// every source over them concurrently, and log a summary.
package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mediascraper/pkg/config"
	"mediascraper/pkg/logger"
	"mediascraper/pkg/publisher"
	"mediascraper/pkg/scraper"
	"mediascraper/pkg/store"
	"mediascraper/pkg/throttle"
)

// ErrRunInProgress is returned when a firing overlaps a running one
var ErrRunInProgress = errors.New("scrape run already in progress")

// Summary describes one completed firing
type Summary struct {
	RunID    string
	Tags     int
	Sources  []scraper.Stats
	Duration time.Duration
}

// Published returns the total newly published records across sources
func (s Summary) Published() int {
	total := 0
	for _, st := range s.Sources {
		total += st.Published
	}
	return total
}

// Runner fans one firing out to every scraper
type Runner struct {
	store    store.Store
	scrapers []*scraper.Scraper
	logger   logger.Logger
	running  atomic.Bool
}

// New creates a Runner over prebuilt scrapers
func New(st store.Store, scrapers []*scraper.Scraper, log logger.Logger) *Runner {
	return &Runner{
		store:    st,
		scrapers: scrapers,
		logger:   logger.OrGlobal(log).WithField("component", "runner"),
	}
}

// NewFromConfig builds the enabled sources, each with its own throttled
// iterator, sharing one publisher over st
func NewFromConfig(cfg *config.Config, st store.Store, client scraper.HTTPClient, log logger.Logger) *Runner {
	log = logger.OrGlobal(log)
	pub := publisher.New(st, log.WithField("component", "publisher"))

	var sources []scraper.Source
	if cfg.Sources.Reddit.Enabled {
		sources = append(sources, scraper.NewRedditSource(cfg.Sources.Reddit, client, log))
	}
	if cfg.Sources.NineGag.Enabled {
		sources = append(sources, scraper.NewNineGagSource(cfg.Sources.NineGag, client, log))
	}
	if cfg.Sources.Imgur.Enabled {
		sources = append(sources, scraper.NewImgurSource(cfg.Sources.Imgur, client, log))
	}

	scrapers := make([]*scraper.Scraper, 0, len(sources))
	for _, src := range sources {
		srcLog := log.WithField("source", src.Name())
		it := throttle.New(cfg.Throttle.MinDelay, cfg.Throttle.MaxDelay, srcLog)
		scrapers = append(scrapers, scraper.New(src, it, pub, log))
	}

	return New(st, scrapers, log)
}

// Running reports whether a firing is in progress
func (r *Runner) Running() bool {
	return r.running.Load()
}

// RunOnce performs one firing. It returns ErrRunInProgress without doing
// anything if another firing has not finished.
func (r *Runner) RunOnce(ctx context.Context) (Summary, error) {
	if !r.running.CompareAndSwap(false, true) {
		r.logger.Warn("Previous scrape run still in progress, skipping")
		return Summary{}, ErrRunInProgress
	}
	defer r.running.Store(false)

	summary := Summary{RunID: uuid.NewString()}
	log := r.logger.WithField("run_id", summary.RunID)
	start := time.Now()

	tags, err := r.store.Tags(ctx)
	if err != nil {
		log.WithError(err).Error("Reading tags failed")
		return summary, err
	}
	summary.Tags = len(tags)

	log.InfoWithFields("Scrape run started", map[string]interface{}{
		"tags":    len(tags),
		"sources": len(r.scrapers),
	})

	// sources never cancel each other: only ctx ends a scraper early
	var g errgroup.Group
	stats := make([]scraper.Stats, len(r.scrapers))
	for i, s := range r.scrapers {
		g.Go(func() error {
			st, err := s.Run(ctx, tags)
			stats[i] = st
			return err
		})
	}
	err = g.Wait()

	summary.Sources = stats
	summary.Duration = time.Since(start)

	for _, st := range stats {
		log.InfoWithFields("Source finished", map[string]interface{}{
			"source":    st.Source,
			"tags":      st.Tags,
			"failed":    st.Failed,
			"scraped":   st.Scraped,
			"published": st.Published,
			"duration":  st.Duration,
		})
	}
	log.InfoWithFields("Scrape run finished", map[string]interface{}{
		"published": summary.Published(),
		"duration":  summary.Duration,
	})

	return summary, err
}
