package scraper

import (
	"context"
	"sync/atomic"
	"time"

	"mediascraper/pkg/logger"
	"mediascraper/pkg/media"
	"mediascraper/pkg/throttle"
)

// Stats summarizes one pass of a source over the tag list
type Stats struct {
	Source    string
	Tags      int
	Failed    int
	Scraped   int
	Published int
	Duration  time.Duration
}

// Scraper drives one Source over a list of tags
type Scraper struct {
	source    Source
	iterator  *throttle.Iterator
	publisher Publisher
	logger    logger.Logger
}

// New creates a Scraper
func New(source Source, iterator *throttle.Iterator, publisher Publisher, log logger.Logger) *Scraper {
	return &Scraper{
		source:    source,
		iterator:  iterator,
		publisher: publisher,
		logger:    logger.OrGlobal(log).WithField("source", source.Name()),
	}
}

// Name returns the source name
func (s *Scraper) Name() string {
	return s.source.Name()
}

// Run scrapes and publishes every tag in order. Per-tag failures are
// logged by the iterator; Run only returns an error when ctx is done.
func (s *Scraper) Run(ctx context.Context, tags []string) (Stats, error) {
	start := time.Now()
	var attempted, succeeded, scraped, published int64

	err := s.iterator.Each(ctx, tags, func(ctx context.Context, tag string) error {
		atomic.AddInt64(&attempted, 1)

		records, err := s.source.Scrape(ctx, tag)
		if err != nil {
			return err
		}
		atomic.AddInt64(&scraped, int64(len(records)))

		n, err := s.publish(ctx, records)
		atomic.AddInt64(&published, int64(n))
		if err != nil {
			return err
		}

		atomic.AddInt64(&succeeded, 1)
		s.logger.DebugWithFields("Tag processed", map[string]interface{}{
			"tag":       tag,
			"scraped":   len(records),
			"published": n,
		})
		return nil
	})

	stats := Stats{
		Source:    s.source.Name(),
		Tags:      int(attempted),
		Failed:    int(attempted - succeeded),
		Scraped:   int(scraped),
		Published: int(published),
		Duration:  time.Since(start),
	}
	return stats, err
}

func (s *Scraper) publish(ctx context.Context, records []media.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	return s.publisher.Publish(ctx, records)
}
