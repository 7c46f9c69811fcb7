package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"mediascraper/pkg/config"
	"mediascraper/pkg/logger"
	"mediascraper/pkg/media"
)

type imgurPost struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Cover       struct {
		Type     string `json:"type"`
		URL      string `json:"url"`
		Ext      string `json:"ext"`
		MimeType string `json:"mime_type"`
	} `json:"cover"`
}

type imgurPosts struct {
	Posts []imgurPost `json:"posts"`
}

// ImgurSource reads the first page of the Imgur tag post API
type ImgurSource struct {
	client   HTTPClient
	baseURL  string
	clientID string
	window   string
	sort     string
	logger   logger.Logger
}

// NewImgurSource creates an ImgurSource
func NewImgurSource(cfg config.ImgurConfig, client HTTPClient, log logger.Logger) *ImgurSource {
	return &ImgurSource{
		client:   client,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		clientID: cfg.ClientID,
		window:   cfg.Window,
		sort:     cfg.Sort,
		logger:   logger.OrGlobal(log).WithField("source", "imgur"),
	}
}

func (s *ImgurSource) Name() string { return "imgur" }

// Scrape fetches one page of tag posts. Records carry exactly the query tag.
func (s *ImgurSource) Scrape(ctx context.Context, tag string) ([]media.Record, error) {
	var resp imgurPosts
	if err := s.client.GetJSON(ctx, s.pageURL(tag), nil, &resp); err != nil {
		return nil, err
	}

	records := make([]media.Record, 0, len(resp.Posts))
	for _, post := range resp.Posts {
		if post.ID == "" || post.Cover.URL == "" {
			continue
		}

		class := media.ClassifyURL(post.Cover.URL)
		if class == media.ClassUnsupported {
			continue
		}
		// the declared cover type wins over the extension
		switch media.Kind(post.Cover.Type) {
		case media.KindImage:
			class = media.ClassImage
		case media.KindVideo:
			class = media.ClassVideo
		}

		rec, ok := media.NewMedia(class, media.Base{
			ID:          post.ID,
			Title:       post.Title,
			Tags:        []string{tag},
			Description: post.Description,
		}, post.Cover.URL)
		if ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (s *ImgurSource) pageURL(tag string) string {
	q := url.Values{}
	q.Set("client_id", s.clientID)
	q.Set("filter[window]", s.window)
	q.Set("include", "adtiles,adconfig,cover")
	q.Set("page", "1")
	q.Set("sort", s.sort)
	return fmt.Sprintf("%s/post/v1/posts/t/%s?%s", s.baseURL, url.PathEscape(tag), q.Encode())
}
