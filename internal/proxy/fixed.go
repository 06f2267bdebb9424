// internal/proxy/fixed.go
package proxy

import (
	"context"
	"net/url"
	"time"
)

// FixedProvider always returns the same configured endpoint. Failure reports
// are no-ops since there is no alternative to rotate to.
type FixedProvider struct {
	endpoint *url.URL
}

// NewFixed creates a provider for a single proxy endpoint.
func NewFixed(endpoint string) (*FixedProvider, error) {
	u, err := ParseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	return &FixedProvider{endpoint: u}, nil
}

// Acquire returns the configured endpoint.
func (p *FixedProvider) Acquire(ctx context.Context) (*Handle, error) {
	return &Handle{URL: p.endpoint, Source: "fixed", FetchedAt: time.Now()}, nil
}

// ReportFailure is a no-op for the fixed provider.
func (p *FixedProvider) ReportFailure(h *Handle, err error) {}

// ReportSuccess is a no-op for the fixed provider.
func (p *FixedProvider) ReportSuccess(h *Handle) {}

// Close is a no-op for the fixed provider.
func (p *FixedProvider) Close() error { return nil }
