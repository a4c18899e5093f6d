package providerruntime

import (
	"net"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultDialTimeout              = 10 * time.Second
	defaultTLSHandshakeTimeout      = 10 * time.Second
	defaultResponseHeaderTimeout    = 0 // unbounded: SSE responses can hold headers open briefly but not the body
	defaultExpectContinueTimeout    = 1 * time.Second
	defaultMaxIdleConns             = 100
	defaultMaxIdleConnsPerHost      = 20
)

// newHTTPClient builds a *http.Client tuned for long-lived upstream calls
// (including SSE), with a zero overall Timeout so a streaming response body
// is never cut off mid-stream; callers bound individual calls via context.
func newHTTPClient(cfg ClientConfig) *http.Client {
	tr := &http.Transport{
		Proxy: proxyFunc(cfg.ProxyURL),
		DialContext: (&net.Dialer{
			Timeout:   durationOrDefault(cfg.DialTimeoutSeconds, defaultDialTimeout),
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   durationOrDefault(cfg.TLSHandshakeTimeoutSecs, defaultTLSHandshakeTimeout),
		ResponseHeaderTimeout: durationOrDefault(cfg.ResponseHeaderTimeoutSec, defaultResponseHeaderTimeout),
		ExpectContinueTimeout: durationOrDefault(cfg.ExpectContinueTimeoutSec, defaultExpectContinueTimeout),
		MaxIdleConns:          intOrDefault(cfg.MaxIdleConns, defaultMaxIdleConns),
		MaxIdleConnsPerHost:   intOrDefault(cfg.MaxIdleConnsPerHost, defaultMaxIdleConnsPerHost),
		IdleConnTimeout:       90 * time.Second,
	}
	return &http.Client{Transport: tr}
}

func proxyFunc(proxyURL string) func(*http.Request) (*url.URL, error) {
	if proxyURL == "" {
		return http.ProxyFromEnvironment
	}
	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return http.ProxyFromEnvironment
	}
	return http.ProxyURL(parsed)
}

func durationOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}

func intOrDefault(n, fallback int) int {
	if n > 0 {
		return n
	}
	return fallback
}
