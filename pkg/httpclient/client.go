package httpclient

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"time"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.2 Safari/605.1.15",
}

// HttpClient wraps http.Client with browser-like headers for the job boards.
type HttpClient struct {
	client *http.Client
}

// NewHttpClient creates a client with the given per-request timeout. An
// optional proxy URL routes every request through that proxy.
func NewHttpClient(timeout time.Duration, proxyURL string) (*HttpClient, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(u)
	}
	return &HttpClient{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}, nil
}

// Client exposes the underlying http.Client for libraries that take one.
func (h *HttpClient) Client() *http.Client {
	return h.client
}

// UserAgent returns a random desktop browser user agent.
func UserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

// Get issues a GET bound to ctx.
func (h *HttpClient) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	return h.Do(req)
}

// Do sends req with browser headers filled in where the caller left them empty.
func (h *HttpClient) Do(req *http.Request) (*http.Response, error) {
	setDefault(req.Header, "User-Agent", UserAgent())
	setDefault(req.Header, "Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.8,*/*;q=0.7")
	setDefault(req.Header, "Accept-Language", "en-IN,en-US;q=0.9,en;q=0.8")
	return h.client.Do(req)
}

func setDefault(h http.Header, key, value string) {
	if h.Get(key) == "" {
		h.Set(key, value)
	}
}
