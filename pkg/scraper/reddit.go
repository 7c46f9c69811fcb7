package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"mediascraper/pkg/config"
	"mediascraper/pkg/errors"
	"mediascraper/pkg/logger"
	"mediascraper/pkg/media"
)

var subredditPattern = regexp.MustCompile(`^/r/(.+?)/`)

// RedditSource scrapes old Reddit HTML pages
type RedditSource struct {
	client  HTTPClient
	baseURL string
	logger  logger.Logger
}

// NewRedditSource creates a RedditSource
func NewRedditSource(cfg config.RedditConfig, client HTTPClient, log logger.Logger) *RedditSource {
	return &RedditSource{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger.OrGlobal(log).WithField("source", "reddit"),
	}
}

func (s *RedditSource) Name() string { return "reddit" }

// Scrape fetches the top listing for tag and every post linked from it
func (s *RedditSource) Scrape(ctx context.Context, tag string) ([]media.Record, error) {
	listURL := fmt.Sprintf("%s/r/%s/top", s.baseURL, url.PathEscape(tag))
	doc, err := s.fetchDocument(ctx, listURL)
	if err != nil {
		return nil, err
	}

	var records []media.Record
	doc.Find(".linklisting > .thing").EachWithBreak(func(_ int, post *goquery.Selection) bool {
		if ctx.Err() != nil {
			return false
		}

		href, ok := post.Find("a.title").First().Attr("href")
		if !ok || !isSameSiteLink(href) {
			return true
		}

		rec, found, err := s.scrapePost(ctx, href)
		if err != nil {
			s.logger.WithError(err).WithFields(map[string]interface{}{
				"tag":  tag,
				"href": href,
			}).Warn("Scraping reddit post failed")
			return true
		}
		if found {
			records = append(records, rec)
		}
		return true
	})

	if err := ctx.Err(); err != nil {
		return records, err
	}
	return records, nil
}

// scrapePost extracts one record from a post detail page. found is false
// when the post has neither media nor body text.
func (s *RedditSource) scrapePost(ctx context.Context, href string) (media.Record, bool, error) {
	detailURL := s.baseURL + href
	doc, err := s.fetchDocument(ctx, detailURL)
	if err != nil {
		return media.Record{}, false, err
	}

	postEl := doc.Find("#siteTable .thing").First()
	if postEl.Length() == 0 {
		return media.Record{}, false, errors.New(errors.ErrorTypeParsing, "no post container on %s", detailURL)
	}

	id, _ := postEl.Attr("id")
	if id == "" {
		return media.Record{}, false, errors.New(errors.ErrorTypeParsing, "post container without id on %s", detailURL)
	}

	m := subredditPattern.FindStringSubmatch(href)
	if m == nil {
		return media.Record{}, false, errors.New(errors.ErrorTypeParsing, "no subreddit in %s", href)
	}

	base := media.Base{
		ID:    id,
		Title: strings.TrimSpace(postEl.Find("a.title").First().Text()),
		Tags:  []string{m[1]},
	}

	var text string
	if body := postEl.Find(".usertext-body").First(); body.Length() > 0 {
		text = strings.TrimSpace(body.Text())
	}

	if src, isImage := mediaSource(postEl.Find(".media-preview").First()); src != "" {
		src = resolveURL(detailURL, src)
		base.Description = text
		if isImage || strings.HasSuffix(strings.ToLower(urlPath(src)), ".gif") {
			return media.NewImage(base, src), true, nil
		}
		return media.NewVideo(base, src), true, nil
	}

	if text != "" {
		return media.NewText(base, text), true, nil
	}
	return media.Record{}, false, nil
}

// mediaSource finds the preview image or video in the media region and
// returns its URL, falling back to a nested <source>
func mediaSource(preview *goquery.Selection) (src string, isImage bool) {
	if preview.Length() == 0 {
		return "", false
	}

	el := preview.Find("img.preview").First()
	isImage = el.Length() > 0
	if !isImage {
		el = preview.Find("video.preview").First()
		if el.Length() == 0 {
			return "", false
		}
	}

	if src, ok := el.Attr("src"); ok && src != "" {
		return src, isImage
	}
	src, _ = el.Find("source").First().Attr("src")
	return src, isImage
}

func (s *RedditSource) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := s.client.Get(ctx, pageURL, nil)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeParsing, "failed to parse HTML from %s", pageURL)
	}
	return doc, nil
}

// isSameSiteLink accepts site-relative paths only; protocol-relative
// "//host/..." links point off-site
func isSameSiteLink(href string) bool {
	return strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//")
}

func resolveURL(pageURL, ref string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

func urlPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Path
}
