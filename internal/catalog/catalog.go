package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"itemdocs/internal/config"
	"itemdocs/internal/metrics"
)

const (
	kindSite     = "site"
	kindCategory = "category"
)

// Client answers whether a site or category id exists in the catalog.
// Every check is a fresh GET; nothing is cached or retried. It is safe for
// concurrent use.
type Client struct {
	http      *http.Client
	baseURL   string
	userAgent string
	metrics   *metrics.Recorder
	log       *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMetrics records every lookup on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *Client) { c.metrics = r }
}

// WithLogger sets the logger used for lookup diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient builds a catalog client bounded by cfg.Timeout.
func NewClient(cfg config.CatalogConfig, opts ...Option) *Client {
	dialer := &net.Dialer{Timeout: cfg.Timeout}
	c := &Client{
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: otelhttp.NewTransport(&http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         dialer.DialContext,
				TLSHandshakeTimeout: cfg.Timeout,
			}),
		},
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ValidateSite reports whether the catalog knows the site id.
func (c *Client) ValidateSite(ctx context.Context, id string) bool {
	return c.exists(ctx, kindSite, "sites", id)
}

// ValidateCategory reports whether the catalog knows the category id.
func (c *Client) ValidateCategory(ctx context.Context, id string) bool {
	return c.exists(ctx, kindCategory, "categories", id)
}

// exists never tells "not found" apart from "unreachable": both are false.
func (c *Client) exists(ctx context.Context, kind, collection, id string) bool {
	if id == "" {
		c.metrics.ObserveLookup(kind, false)
		return false
	}
	err := c.fetch(ctx, c.baseURL+"/"+collection+"/"+url.PathEscape(id))
	found := err == nil
	if !found {
		c.log.DebugContext(ctx, "catalog lookup rejected", "kind", kind, "id", id, "error", err)
	}
	c.metrics.ObserveLookup(kind, found)
	return found
}

func (c *Client) fetch(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("failed to fetch: status %d", res.StatusCode)
	}
	// Success means the body was read to the end.
	if _, err := io.Copy(io.Discard, res.Body); err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}
	return nil
}
