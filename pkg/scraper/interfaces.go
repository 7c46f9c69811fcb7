package scraper

import (
	"context"

	"mediascraper/pkg/httpclient"
	"mediascraper/pkg/media"
)

// HTTPClient defines the outbound HTTP operations sources need
type HTTPClient interface {
	Get(ctx context.Context, url string, headers map[string]string) (*httpclient.Response, error)
	GetJSON(ctx context.Context, url string, headers map[string]string, target interface{}) error
}

// Source turns one tag on one platform into normalized records
type Source interface {
	Name() string
	Scrape(ctx context.Context, tag string) ([]media.Record, error)
}

// Publisher defines the dedup publish step
type Publisher interface {
	Publish(ctx context.Context, records []media.Record) (int, error)
}
