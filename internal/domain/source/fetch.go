// Package source retrieves the published sales sheet and turns it into a
// normalized snapshot.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"
)

const (
	// DefaultProxyPrefix is a read-through proxy used when the sheet host
	// refuses a direct request.
	DefaultProxyPrefix = "https://r.jina.ai/http://"

	defaultFetchTimeout = 20 * time.Second
	maxDocumentSize     = 32 << 20
)

// ErrNoURL is returned when no sheet URL is configured.
var ErrNoURL = errors.New("sales source URL not configured")

var schemePattern = regexp.MustCompile(`^https?://`)

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// Document is a downloaded sheet.
type Document struct {
	URL         string
	ContentType string
	Body        []byte
	ViaProxy    bool
	FromCache   bool
}

// FetchConfig configures a Fetcher.
type FetchConfig struct {
	ProxyPrefix string
	Timeout     time.Duration
}

// Fetcher downloads sheets over HTTP, retrying once through the proxy.
type Fetcher struct {
	client      *http.Client
	proxyPrefix string
	logger      *slog.Logger
}

// NewFetcher creates a fetcher. An empty ProxyPrefix disables the fallback.
func NewFetcher(cfg FetchConfig, logger *slog.Logger) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Fetcher{
		client:      &http.Client{Timeout: timeout},
		proxyPrefix: cfg.ProxyPrefix,
		logger:      logger,
	}
}

// WithClient returns a copy of f using client.
func (f *Fetcher) WithClient(client *http.Client) *Fetcher {
	cp := *f
	cp.client = client
	return &cp
}

// ProxiedURL rewrites rawURL to go through prefix.
func ProxiedURL(prefix, rawURL string) string {
	return prefix + schemePattern.ReplaceAllString(rawURL, "")
}

// Fetch downloads rawURL. When the direct request fails and a proxy is
// configured the proxied URL is tried; its error wraps both failures.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	if rawURL == "" {
		return nil, ErrNoURL
	}

	doc, directErr := f.get(ctx, rawURL)
	if directErr == nil {
		return doc, nil
	}
	if f.proxyPrefix == "" || ctx.Err() != nil {
		return nil, fmt.Errorf("failed to fetch sales sheet: %w", directErr)
	}

	f.logger.Warn("direct sheet fetch failed, retrying through proxy",
		slog.String("url", rawURL),
		slog.Any("error", directErr),
	)

	doc, proxyErr := f.get(ctx, ProxiedURL(f.proxyPrefix, rawURL))
	if proxyErr != nil {
		return nil, fmt.Errorf("failed to fetch sales sheet through proxy: %w (previous error: %w)", proxyErr, directErr)
	}
	doc.ViaProxy = true
	return doc, nil
}

func (f *Fetcher) get(ctx context.Context, url string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	res, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4<<10))
		return nil, &StatusError{URL: url, StatusCode: res.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return &Document{
		URL:         url,
		ContentType: res.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
