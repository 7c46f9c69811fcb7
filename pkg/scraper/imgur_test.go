package scraper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediascraper/pkg/config"
	"mediascraper/pkg/media"
)

func imgurConfig(baseURL string) config.ImgurConfig {
	cfg := config.DefaultConfig().Sources.Imgur
	cfg.BaseURL = baseURL
	return cfg
}

func TestImgurSource_Scrape(t *testing.T) {
	var query url.Values
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		query = r.URL.Query()
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"posts": []map[string]interface{}{
				{"id": "a1", "title": "cat", "description": "fluffy", "cover": map[string]string{"type": "image", "url": "https://i.imgur.com/a1.jpeg", "ext": "jpeg"}},
				{"id": "b2", "title": "clip", "cover": map[string]string{"type": "video", "url": "https://i.imgur.com/b2.mp4", "ext": "mp4"}},
				{"id": "c3", "title": "blob", "cover": map[string]string{"type": "image", "url": "https://i.imgur.com/c3.bin", "ext": "bin"}},
				{"id": "d4", "title": "gifv", "cover": map[string]string{"type": "video", "url": "https://i.imgur.com/d4.gif", "ext": "gif"}},
			},
		})
	}))
	defer srv.Close()

	src := NewImgurSource(imgurConfig(srv.URL), newTestHTTPClient(t), nil)
	records, err := src.Scrape(context.Background(), "cats")
	require.NoError(t, err)

	assert.Equal(t, "/post/v1/posts/t/cats", path)
	assert.Equal(t, "546c25a59c58ad7", query.Get("client_id"))
	assert.Equal(t, "week", query.Get("filter[window]"))
	assert.Equal(t, "adtiles,adconfig,cover", query.Get("include"))
	assert.Equal(t, "1", query.Get("page"))
	assert.Equal(t, "-viral", query.Get("sort"))

	require.Equal(t, []string{"a1", "b2", "d4"}, ids(records))
	for _, r := range records {
		assert.Equal(t, []string{"cats"}, r.Tags)
	}
	assert.Equal(t, media.KindImage, records[0].Kind)
	assert.Equal(t, "fluffy", records[0].Description)
	assert.Equal(t, media.KindVideo, records[1].Kind)
	assert.Equal(t, media.KindVideo, records[2].Kind, "declared cover type wins")
}

func TestImgurSource_PageURL(t *testing.T) {
	src := NewImgurSource(imgurConfig("https://api.imgur.com"), nil, nil)
	assert.Equal(t,
		"https://api.imgur.com/post/v1/posts/t/cats?client_id=546c25a59c58ad7&filter%5Bwindow%5D=week&include=adtiles%2Cadconfig%2Ccover&page=1&sort=-viral",
		src.pageURL("cats"))
}
