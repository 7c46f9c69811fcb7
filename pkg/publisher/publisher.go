// Package publisher appends newly discovered records to the output stream,
// at most once per record id.
package publisher

import (
	"context"
	"time"

	"mediascraper/pkg/logger"
	"mediascraper/pkg/media"
	"mediascraper/pkg/store"
)

// Publisher filters already seen records and publishes the rest
type Publisher struct {
	store  store.Store
	now    func() time.Time
	logger logger.Logger
}

// New creates a Publisher writing to s
func New(s store.Store, log logger.Logger) *Publisher {
	return &Publisher{
		store:  s,
		now:    time.Now,
		logger: logger.OrGlobal(log),
	}
}

// WithClock replaces the time source used for seen scores
func (p *Publisher) WithClock(now func() time.Time) *Publisher {
	p.now = now
	return p
}

// Publish processes records sequentially and returns how many were newly
// published. Invalid records are skipped. A store failure stops the batch
// and is returned with the count published so far.
func (p *Publisher) Publish(ctx context.Context, records []media.Record) (int, error) {
	published := 0
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			p.logger.WithError(err).Warn("Skipping invalid media record")
			continue
		}

		ok, err := p.store.PublishIfUnseen(ctx, rec, p.now())
		if err != nil {
			return published, err
		}
		if !ok {
			continue
		}

		published++
		p.logger.DebugWithFields("Published media", map[string]interface{}{
			"id":   rec.ID,
			"type": string(rec.Kind),
		})
	}
	return published, nil
}
