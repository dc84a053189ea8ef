package fetch

import (
	"net/http"
	"net/url"
)

// proxyFunc builds the transport's proxy selector. An empty setting
// falls back to the standard environment variables.
func proxyFunc(proxy string) func(*http.Request) (*url.URL, error) {
	if proxy == "" {
		return http.ProxyFromEnvironment
	}
	return func(*http.Request) (*url.URL, error) {
		return url.Parse(proxy)
	}
}
