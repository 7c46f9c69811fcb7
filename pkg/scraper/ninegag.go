package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"mediascraper/pkg/config"
	"mediascraper/pkg/httpclient"
	"mediascraper/pkg/logger"
	"mediascraper/pkg/media"
)

type nineGagFeed struct {
	Data struct {
		Posts []nineGagPost `json:"posts"`
	} `json:"data"`
}

type nineGagPost struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Tags        []struct {
		Key string `json:"key"`
		URL string `json:"url"`
	} `json:"tags"`
	Images struct {
		Image700   *nineGagImage `json:"image700"`
		Image460   *nineGagImage `json:"image460"`
		Image460sv *nineGagImage `json:"image460sv"`
	} `json:"images"`
}

type nineGagImage struct {
	URL string `json:"url"`
}

// bestImage picks the short video preview, then the large still, then the
// standard still
func (p nineGagPost) bestImage() string {
	for _, img := range []*nineGagImage{p.Images.Image460sv, p.Images.Image700, p.Images.Image460} {
		if img != nil && img.URL != "" {
			return img.URL
		}
	}
	return ""
}

// NineGagSource scrapes the 9GAG hot tag feed
type NineGagSource struct {
	client   HTTPClient
	baseURL  string
	minPosts int
	maxPages int
	headers  map[string]string
	logger   logger.Logger
}

// NewNineGagSource creates a NineGagSource
func NewNineGagSource(cfg config.NineGagConfig, client HTTPClient, log logger.Logger) *NineGagSource {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	headers := make(map[string]string, len(httpclient.BrowserHeaders)+1)
	for k, v := range httpclient.BrowserHeaders {
		headers[k] = v
	}
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		headers["Host"] = u.Host
	}

	return &NineGagSource{
		client:   client,
		baseURL:  baseURL,
		minPosts: cfg.MinPosts,
		maxPages: cfg.MaxPages,
		headers:  headers,
		logger:   logger.OrGlobal(log).WithField("source", "9gag"),
	}
}

func (s *NineGagSource) Name() string { return "9gag" }

// Scrape collects at least minPosts posts for tag and normalizes them
func (s *NineGagSource) Scrape(ctx context.Context, tag string) ([]media.Record, error) {
	posts, err := s.collect(ctx, tag)
	if err != nil {
		return nil, err
	}

	records := make([]media.Record, 0, len(posts))
	for _, post := range posts {
		src := post.bestImage()
		if src == "" || post.ID == "" {
			continue
		}

		tags := make([]string, 0, len(post.Tags))
		for _, t := range post.Tags {
			if t.Key != "" {
				tags = append(tags, t.Key)
			}
		}
		if len(tags) == 0 {
			tags = []string{tag}
		}

		rec, ok := media.NewMedia(media.ClassifyURL(src), media.Base{
			ID:          post.ID,
			Title:       post.Title,
			Tags:        tags,
			Description: post.Description,
		}, src)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// collect pages the feed, advancing the offset by the running count, until
// minPosts posts are gathered. It gives up after maxPages requests or on an
// empty page and returns what it has.
func (s *NineGagSource) collect(ctx context.Context, tag string) ([]nineGagPost, error) {
	var posts []nineGagPost
	for page := 0; len(posts) < s.minPosts; page++ {
		if s.maxPages > 0 && page >= s.maxPages {
			s.logger.WarnWithFields("9GAG feed page cap reached", map[string]interface{}{
				"tag":   tag,
				"pages": page,
				"posts": len(posts),
			})
			break
		}

		var feed nineGagFeed
		if err := s.client.GetJSON(ctx, s.pageURL(tag, len(posts)), s.headers, &feed); err != nil {
			return nil, err
		}
		if len(feed.Data.Posts) == 0 {
			s.logger.WarnWithFields("9GAG feed returned an empty page", map[string]interface{}{
				"tag":   tag,
				"page":  page,
				"posts": len(posts),
			})
			break
		}
		posts = append(posts, feed.Data.Posts...)
	}
	return posts, nil
}

func (s *NineGagSource) pageURL(tag string, offset int) string {
	return fmt.Sprintf("%s/v1/tag-posts/tag/%s/type/hot?c=%d", s.baseURL, url.PathEscape(tag), offset)
}
