// Package httpclient is the outbound HTTP client shared by all sources.
//
// It sends a browser-like header set, optionally tunnels through a SOCKS5 or
// HTTP proxy, paces requests per host and decodes gzip, deflate and brotli
// bodies itself because the Accept-Encoding header is set explicitly.
// Non-2xx responses come back as errors of type ErrorTypeStatus; transport
// failures as ErrorTypeNetwork. There are no retries.
package httpclient
