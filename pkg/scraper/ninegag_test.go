package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediascraper/pkg/config"
	"mediascraper/pkg/errors"
	"mediascraper/pkg/logger"
	"mediascraper/pkg/media"
)

// nineGagServer serves pages of perPage posts; ext picks the image extension
// for post n. Pages at offset >= total are empty.
type nineGagServer struct {
	perPage int
	total   int
	ext     func(n int) string

	mu      sync.Mutex
	offsets []int
	headers http.Header
}

func (s *nineGagServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("c"))

	s.mu.Lock()
	s.offsets = append(s.offsets, offset)
	s.headers = r.Header.Clone()
	s.mu.Unlock()

	posts := []map[string]interface{}{}
	for n := offset; n < offset+s.perPage && n < s.total; n++ {
		posts = append(posts, map[string]interface{}{
			"id":          fmt.Sprintf("p%d", n),
			"title":       fmt.Sprintf("post %d", n),
			"description": "",
			"type":        "Photo",
			"tags":        []map[string]string{{"key": "funny", "url": "/tag/funny"}, {"key": "cats", "url": "/tag/cats"}},
			"images": map[string]interface{}{
				"image700": map[string]string{"url": fmt.Sprintf("https://img-9gag-fun.9cache.com/photo/p%d_700b.%s", n, s.ext(n))},
				"image460": map[string]string{"url": fmt.Sprintf("https://img-9gag-fun.9cache.com/photo/p%d_460s.%s", n, s.ext(n))},
			},
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"meta": map[string]string{"status": "Success"},
		"data": map[string]interface{}{"posts": posts},
	})
}

func newNineGag(t *testing.T, fake *nineGagServer, maxPages int, log logger.Logger) *NineGagSource {
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewNineGagSource(config.NineGagConfig{
		BaseURL:  srv.URL,
		MinPosts: 25,
		MaxPages: maxPages,
	}, newTestHTTPClient(t), log)
}

func TestNineGagSource_PaginatesUntilMinimum(t *testing.T) {
	fake := &nineGagServer{perPage: 10, total: 100, ext: func(int) string { return "jpg" }}
	src := newNineGag(t, fake, 10, nil)

	records, err := src.Scrape(context.Background(), "cats")
	require.NoError(t, err)

	assert.Equal(t, []int{0, 10, 20}, fake.offsets)
	assert.Len(t, records, 30)
	assert.GreaterOrEqual(t, len(records), 25)

	first := records[0]
	assert.Equal(t, media.KindImage, first.Kind)
	assert.Equal(t, []string{"funny", "cats"}, first.Tags)
	assert.Equal(t, "https://img-9gag-fun.9cache.com/photo/p0_700b.jpg", first.Src)

	assert.Equal(t, "?1", fake.headers.Get("Sec-Fetch-User"))
	assert.Equal(t, "gzip, deflate, br", fake.headers.Get("Accept-Encoding"))
}

func TestNineGagSource_ClassifiesAndSkipsUnsupported(t *testing.T) {
	exts := []string{"mp4", "webp", "html", "JPG"}
	fake := &nineGagServer{perPage: 4, total: 4, ext: func(n int) string { return exts[n] }}
	src := newNineGag(t, fake, 10, logger.NewNopLogger())

	records, err := src.Scrape(context.Background(), "cats")
	require.NoError(t, err)

	require.Equal(t, []string{"p0", "p1", "p3"}, ids(records))
	assert.Equal(t, media.KindVideo, records[0].Kind)
	assert.Equal(t, media.KindImage, records[1].Kind)
	assert.Equal(t, media.KindImage, records[2].Kind)
}

func TestNineGagSource_EmptyPageStopsPaging(t *testing.T) {
	fake := &nineGagServer{perPage: 10, total: 12, ext: func(int) string { return "png" }}
	log := logger.NewTestLogger()
	src := newNineGag(t, fake, 10, log)

	records, err := src.Scrape(context.Background(), "cats")
	require.NoError(t, err)

	assert.Equal(t, []int{0, 10, 12}, fake.offsets)
	assert.Len(t, records, 12)
	assert.True(t, log.HasMessage("9GAG feed returned an empty page"))
}

func TestNineGagSource_PageCap(t *testing.T) {
	fake := &nineGagServer{perPage: 1, total: 100, ext: func(int) string { return "png" }}
	log := logger.NewTestLogger()
	src := newNineGag(t, fake, 3, log)

	records, err := src.Scrape(context.Background(), "cats")
	require.NoError(t, err)

	assert.Len(t, fake.offsets, 3)
	assert.Len(t, records, 3)
	assert.True(t, log.HasMessage("9GAG feed page cap reached"))
}

func TestNineGagSource_PrefersVideoPreview(t *testing.T) {
	post := nineGagPost{}
	post.Images.Image460 = &nineGagImage{URL: "https://x/460.jpg"}
	post.Images.Image700 = &nineGagImage{URL: "https://x/700.jpg"}
	assert.Equal(t, "https://x/700.jpg", post.bestImage())

	post.Images.Image460sv = &nineGagImage{URL: "https://x/460sv.mp4"}
	assert.Equal(t, "https://x/460sv.mp4", post.bestImage())

	assert.Empty(t, nineGagPost{}.bestImage())
}

func TestNineGagSource_FeedFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	src := NewNineGagSource(config.NineGagConfig{BaseURL: srv.URL, MinPosts: 25, MaxPages: 10}, newTestHTTPClient(t), nil)
	_, err := src.Scrape(context.Background(), "cats")
	assert.True(t, errors.IsType(err, errors.ErrorTypeStatus))
}
