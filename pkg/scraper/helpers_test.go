package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mediascraper/pkg/config"
	"mediascraper/pkg/httpclient"
	"mediascraper/pkg/logger"
	"mediascraper/pkg/media"
	"mediascraper/pkg/throttle"
)

func newTestHTTPClient(t *testing.T) *httpclient.Client {
	t.Helper()
	c, err := httpclient.New(config.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "mediascraper-test"}, nil, logger.NewNopLogger())
	require.NoError(t, err)
	return c
}

// routes serves fixed bodies by request path; unknown paths get 404
func newFixtureServer(t *testing.T, routes map[string]string, contentType string) (*httptest.Server, *[]*http.Request) {
	t.Helper()
	var seen []*http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r)
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func noSleepIterator() *throttle.Iterator {
	return throttle.New(time.Second, 2*time.Second, logger.NewNopLogger(),
		throttle.WithSleep(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }))
}

func ids(records []media.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}
