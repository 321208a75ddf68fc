package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"itemdocs/internal/config"
	"itemdocs/internal/repository"
)

var newClient = elasticsearch.NewClient

const (
	defaultIndex          = "itemdata"
	defaultRequestTimeout = 10 * time.Second
)

// Manager owns the single shared document store handle. The handle is built
// lazily on the first Acquire and dropped by Release. Acquire and Release are
// mutually exclusive, so two handles are never built concurrently and a
// handle is never torn down halfway through construction.
type Manager struct {
	cfg config.ElasticConfig
	log *slog.Logger

	mu        sync.Mutex
	client    *elasticsearch.Client
	transport *http.Transport
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger sets the logger for connection lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager returns a Manager for the endpoints in cfg. No connection is
// made until Acquire.
func NewManager(cfg config.ElasticConfig, opts ...Option) *Manager {
	if cfg.Index == "" {
		cfg.Index = defaultIndex
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	m := &Manager{cfg: cfg, log: slog.Default()}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Index is the index all item documents live in.
func (m *Manager) Index() string { return m.cfg.Index }

// RequestTimeout bounds every single store request.
func (m *Manager) RequestTimeout() time.Duration { return m.cfg.RequestTimeout }

// Acquire returns the live handle, building and verifying a new one if there
// is none. A failed build leaves the slot empty and returns a
// *repository.ConnectionError. Nothing is retried.
func (m *Manager) Acquire(ctx context.Context) (*elasticsearch.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		return m.client, nil
	}

	addrs := m.cfg.Addresses()
	if len(addrs) == 0 {
		return nil, &repository.ConnectionError{Op: "connect", Err: errors.New("no store endpoints configured")}
	}

	dialer := &net.Dialer{Timeout: m.cfg.RequestTimeout, KeepAlive: 30 * time.Second}
	base := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: m.cfg.RequestTimeout,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}

	es, err := newClient(elasticsearch.Config{
		Addresses:    addrs,
		Username:     m.cfg.Username,
		Password:     m.cfg.Password,
		Transport:    otelhttp.NewTransport(base),
		DisableRetry: true,
	})
	if err != nil {
		base.CloseIdleConnections()
		return nil, &repository.ConnectionError{Op: "connect", Err: fmt.Errorf("create client: %w", err)}
	}

	if err := m.verify(ctx, es); err != nil {
		base.CloseIdleConnections()
		m.log.WarnContext(ctx, "store connection failed", "addresses", addrs, "error", err)
		return nil, &repository.ConnectionError{Op: "connect", Err: err}
	}

	m.client, m.transport = es, base
	m.log.InfoContext(ctx, "store connection established", "addresses", addrs, "index", m.cfg.Index)
	return es, nil
}

// Release drops the current handle and closes its idle connections. Without
// a live handle it does nothing.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return
	}
	m.transport.CloseIdleConnections()
	m.client, m.transport = nil, nil
	m.log.Info("store connection released")
}

// Ping acquires the handle and checks the cluster answers.
func (m *Manager) Ping(ctx context.Context) error {
	es, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	if err := m.verify(ctx, es); err != nil {
		return &repository.ConnectionError{Op: "ping", Err: err}
	}
	return nil
}

// verify issues an Info request with a short timeout.
func (m *Manager) verify(ctx context.Context, es *elasticsearch.Client) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	defer cancel()

	res, err := es.Info(es.Info.WithContext(ctx))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("store info: %w: %v", ctxErr, err)
		}
		return fmt.Errorf("store info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("store info: %s", res.Status())
	}
	return nil
}
