package scraper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediascraper/pkg/errors"
	"mediascraper/pkg/logger"
	"mediascraper/pkg/media"
	"mediascraper/pkg/publisher"
	"mediascraper/pkg/store"
)

type stubSource struct {
	name    string
	results map[string][]media.Record
	calls   []string
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Scrape(_ context.Context, tag string) ([]media.Record, error) {
	s.calls = append(s.calls, tag)
	if tag == "boom" {
		panic("unexpected markup")
	}
	recs, ok := s.results[tag]
	if !ok {
		return nil, errors.Status(http.StatusNotFound, tag)
	}
	return recs, nil
}

func TestScraper_RunIsolatesTagFailures(t *testing.T) {
	src := &stubSource{name: "stub", results: map[string][]media.Record{
		"a": records3("a"),
		"c": records3("c"),
	}}
	pub := publisher.New(store.NewMemoryStore(store.Keys{}), logger.NewNopLogger())
	s := New(src, noSleepIterator(), pub, logger.NewNopLogger())

	stats, err := s.Run(context.Background(), []string{"a", "b", "boom", "c"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "boom", "c"}, src.calls)
	assert.Equal(t, Stats{
		Source:    "stub",
		Tags:      4,
		Failed:    2,
		Scraped:   6,
		Published: 6,
		Duration:  stats.Duration,
	}, stats)
}

func records3(prefix string) []media.Record {
	out := make([]media.Record, 0, 3)
	for _, n := range []string{"1", "2", "3"} {
		out = append(out, media.NewImage(media.Base{ID: prefix + n, Title: n, Tags: []string{prefix}}, "https://x/"+prefix+n+".png"))
	}
	return out
}

func TestScraper_EndToEndDedup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"posts": []map[string]interface{}{
				{"id": "i1", "title": "one", "cover": map[string]string{"type": "image", "url": "https://i.imgur.com/i1.jpg"}},
				{"id": "i2", "title": "two", "cover": map[string]string{"type": "image", "url": "https://i.imgur.com/i2.png"}},
				{"id": "i3", "title": "three", "cover": map[string]string{"type": "image", "url": "https://i.imgur.com/i3.gif"}},
				{"id": "i4", "title": "four", "cover": map[string]string{"type": "image", "url": "https://i.imgur.com/i4.bin"}},
			},
		})
	}))
	defer srv.Close()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	st := store.NewRedisStoreWithClient(client, store.Keys{Namespace: "e2e"})

	src := NewImgurSource(imgurConfig(srv.URL), newTestHTTPClient(t), nil)
	s := New(src, noSleepIterator(), publisher.New(st, nil), logger.NewNopLogger())

	ctx := context.Background()
	stats, err := s.Run(ctx, []string{"cats"})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Published)

	entries, err := st.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "cats", entries[0].Values["tags"])

	stats, err = s.Run(ctx, []string{"cats"})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Published)

	entries, err = st.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestScraper_RunStopsOnCancel(t *testing.T) {
	src := &stubSource{name: "stub", results: map[string][]media.Record{"a": nil, "b": nil}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(src, noSleepIterator(), publisher.New(store.NewMemoryStore(store.Keys{}), nil), nil)
	_, err := s.Run(ctx, []string{"a", "b"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, src.calls)
}
