package util

import (
	"fmt"
	"net/http"
	"net/url"
)

// NewProxyFunc builds the proxy selector for an HTTP transport. An empty
// proxyURL falls back to the standard environment variables.
func NewProxyFunc(proxyURL string) (func(*http.Request) (*url.URL, error), error) {
	if proxyURL == "" {
		return http.ProxyFromEnvironment, nil
	}
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("parse proxy url %q: %w", proxyURL, err)
	}
	return http.ProxyURL(u), nil
}
