// internal/proxy/remote.go
package proxy

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"apirush/internal/utils"
)

// maxFetchBody bounds how much of a proxy list response is read.
const maxFetchBody = 1 << 20

// RemotePoolConfig parameterizes the remote-pool provider.
type RemotePoolConfig struct {
	// SourceURL is fetched with HTTP GET and must return newline-separated
	// proxy endpoints ("ip:port" or full URLs).
	SourceURL string

	// RefreshInterval marks the cached pool stale once its age exceeds it.
	RefreshInterval time.Duration

	// MinPoolSize triggers a refill when failure reports shrink the pool
	// below it.
	MinPoolSize int

	// FetchTimeout bounds a single list fetch.
	FetchTimeout time.Duration
}

// RemotePoolProvider lazily fetches endpoints from an external source and
// serves them round-robin. Concurrent Acquire calls share one in-flight
// refresh; fetch failures surface as retryable PROXY_EXHAUSTED errors.
type RemotePoolProvider struct {
	cfg    RemotePoolConfig
	client *http.Client
	group  singleflight.Group

	mu        sync.Mutex
	pool      []*url.URL
	cursor    int
	fetchedAt time.Time
	fetches   int64
}

// NewRemotePool creates a remote-pool provider. The pool is not fetched
// until the first Acquire.
func NewRemotePool(cfg RemotePoolConfig) (*RemotePoolProvider, error) {
	if cfg.SourceURL == "" {
		return nil, fmt.Errorf("remote pool source URL is required")
	}
	if _, err := url.ParseRequestURI(cfg.SourceURL); err != nil {
		return nil, fmt.Errorf("invalid remote pool source URL: %w", err)
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Minute
	}
	if cfg.MinPoolSize <= 0 {
		cfg.MinPoolSize = 1
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 5 * time.Second
	}

	return &RemotePoolProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.FetchTimeout},
	}, nil
}

// Acquire returns the next pooled endpoint, refreshing the pool first when
// it is stale or below the minimum size.
func (p *RemotePoolProvider) Acquire(ctx context.Context) (*Handle, error) {
	p.mu.Lock()
	stale := time.Since(p.fetchedAt) > p.cfg.RefreshInterval
	depleted := len(p.pool) < p.cfg.MinPoolSize
	p.mu.Unlock()

	if stale || depleted {
		if err := p.refresh(ctx); err != nil {
			p.mu.Lock()
			empty := len(p.pool) == 0
			p.mu.Unlock()
			// A failed refresh is fatal only when nothing is left to
			// serve; otherwise the stale pool keeps the run going.
			if empty {
				return nil, utils.NewProxyExhausted("remote", err)
			}
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.pool) == 0 {
		return nil, utils.NewProxyExhausted("remote", nil)
	}

	p.cursor %= len(p.pool)
	u := p.pool[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.pool)
	return &Handle{URL: u, Source: "remote", FetchedAt: p.fetchedAt}, nil
}

// refresh collapses concurrent refresh requests into a single fetch.
func (p *RemotePoolProvider) refresh(ctx context.Context) error {
	_, err, _ := p.group.Do("refresh", func() (interface{}, error) {
		endpoints, err := p.fetch(ctx)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.pool = endpoints
		p.cursor = 0
		p.fetchedAt = time.Now()
		p.fetches++
		p.mu.Unlock()
		return nil, nil
	})
	return err
}

func (p *RemotePoolProvider) fetch(ctx context.Context) ([]*url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.SourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build pool fetch request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pool fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pool fetch returned HTTP %d", resp.StatusCode)
	}

	var endpoints []*url.URL
	scanner := bufio.NewScanner(io.LimitReader(resp.Body, maxFetchBody))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		u, err := ParseEndpoint(line)
		if err != nil {
			// Skip malformed entries rather than failing the whole list.
			continue
		}
		endpoints = append(endpoints, u)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pool response: %w", err)
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("pool source returned no usable endpoints")
	}

	return endpoints, nil
}

// ReportFailure removes the handle's endpoint from the cached pool. When the
// pool drops below the minimum size the next Acquire triggers a refill.
func (p *RemotePoolProvider) ReportFailure(h *Handle, err error) {
	if h == nil || h.URL == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	target := h.URL.String()
	for i, u := range p.pool {
		if u.String() == target {
			p.pool = append(p.pool[:i], p.pool[i+1:]...)
			if p.cursor > i {
				p.cursor--
			}
			return
		}
	}
}

// ReportSuccess is a no-op; pooled endpoints carry no failure streak.
func (p *RemotePoolProvider) ReportSuccess(h *Handle) {}

// Close releases idle fetch connections.
func (p *RemotePoolProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// FetchCount reports how many list fetches have completed.
func (p *RemotePoolProvider) FetchCount() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetches
}

// PoolSize reports the current number of cached endpoints.
func (p *RemotePoolProvider) PoolSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pool)
}
