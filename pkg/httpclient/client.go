package httpclient

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/proxy"

	"mediascraper/pkg/config"
	"mediascraper/pkg/errors"
	"mediascraper/pkg/logger"
	"mediascraper/pkg/ratelimit"
)

// maxBodySize caps a response body, before and after decoding
var maxBodySize int64 = 32 << 20

// BrowserHeaders emulates a browser document navigation. Sources that get
// blocked without it pass it per request.
var BrowserHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Encoding":           "gzip, deflate, br",
	"Accept-Language":           "en-US,en;q=0.5",
	"Connection":                "keep-alive",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Upgrade-Insecure-Requests": "1",
}

// Response is a fully read and decoded HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        string
}

// Client performs paced GET requests
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// New creates a Client from the HTTP configuration. A nil limiter disables pacing.
func New(cfg config.HTTPConfig, limiter ratelimit.Limiter, log logger.Logger) (*Client, error) {
	transport, err := newTransport(cfg.ProxyURL)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{
		"Accept-Encoding": BrowserHeaders["Accept-Encoding"],
		"Accept-Language": BrowserHeaders["Accept-Language"],
	}
	if cfg.UserAgent != "" {
		headers["User-Agent"] = cfg.UserAgent
	}

	if limiter == nil {
		limiter = ratelimit.Unlimited()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		headers: headers,
		limiter: limiter,
		logger:  logger.OrGlobal(log).WithField("component", "httpclient"),
	}, nil
}

// newTransport builds the transport, routing through proxyURL when set.
// socks5 and socks5h URLs dial through x/net/proxy; http and https URLs use
// the standard CONNECT proxy support.
func newTransport(proxyURL string) (*http.Transport, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   15 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		DisableCompression:    true,
	}

	if proxyURL == "" {
		return transport, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid proxy url")
	}

	switch strings.ToLower(u.Scheme) {
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid socks proxy")
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
	default:
		return nil, errors.New(errors.ErrorTypeConfig, "unsupported proxy scheme %q", u.Scheme)
	}

	return transport, nil
}

// Get fetches rawURL. headers override the client's defaults for this request.
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeUnknown, "failed to create request")
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	// Go sends Host from req.Host, not from the header map
	if host := req.Header.Get("Host"); host != "" {
		req.Host = host
	}

	if err := c.limiter.Wait(ctx, req.URL.Host); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeNetwork, "rate limiter wait for %s", req.URL.Host)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"url": rawURL,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"url":      rawURL,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return nil, errors.Wrap(err, errors.ErrorTypeNetwork, "GET %s", rawURL)
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      rawURL,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	if err := c.checkResponseStatus(resp, rawURL); err != nil {
		return nil, err
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeNetwork, "failed to read response body from %s", rawURL)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		URL:        resp.Request.URL.String(),
	}, nil
}

// GetJSON fetches rawURL and decodes the JSON body into target
func (c *Client) GetJSON(ctx context.Context, rawURL string, headers map[string]string, target interface{}) error {
	resp, err := c.Get(ctx, rawURL, headers)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(resp.Body, target); err != nil {
		bodyPreview := string(resp.Body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.WarnWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          rawURL,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return errors.Wrap(err, errors.ErrorTypeParsing, "failed to parse JSON from %s", rawURL)
	}

	return nil
}

// checkResponseStatus maps any non-2xx status to a status error
func (c *Client) checkResponseStatus(resp *http.Response, rawURL string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"url":    rawURL,
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.WarnWithFields("rate limit exceeded", fields)
	case resp.StatusCode >= 500:
		c.logger.WarnWithFields("server error", fields)
	default:
		c.logger.DebugWithFields("unexpected status", fields)
	}

	return errors.Status(resp.StatusCode, rawURL)
}

// readBody reads and decodes the body according to Content-Encoding
func readBody(resp *http.Response) ([]byte, error) {
	raw, err := readLimited(resp.Body)
	if err != nil {
		return nil, err
	}
	return decodeBody(resp.Header.Get("Content-Encoding"), raw)
}

func decodeBody(encoding string, raw []byte) ([]byte, error) {
	var r io.Reader
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return raw, nil
	case "gzip", "x-gzip":
		gr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		r = gr
	case "deflate":
		// servers disagree on whether deflate means zlib-wrapped or raw
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			fr := flate.NewReader(bytes.NewReader(raw))
			defer fr.Close()
			r = fr
		} else {
			defer zr.Close()
			r = zr
		}
	case "br":
		r = brotli.NewReader(bytes.NewReader(raw))
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}

	return readLimited(r)
}

// readLimited reads r fully and fails when it holds more than maxBodySize
// bytes instead of returning a truncated body
func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBodySize {
		return nil, fmt.Errorf("response body exceeds %d bytes", maxBodySize)
	}
	return data, nil
}
