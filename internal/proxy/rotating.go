// internal/proxy/rotating.go
package proxy

import (
	"context"
	"net/url"
	"sync"
	"time"

	"apirush/internal/utils"
)

// endpointState tracks one rotation slot. cooldownUntil excludes an endpoint
// from selection after a failure report until the window elapses.
type endpointState struct {
	url           *url.URL
	useCount      int64
	failureCount  int64
	cooldownUntil time.Time
}

// RotatingProvider hands out endpoints from an ordered list in round-robin
// order. Selection is cursor-based, not failure-aware; failures only exclude
// an endpoint for the configured cool-down window.
type RotatingProvider struct {
	mu        sync.Mutex
	endpoints []*endpointState
	cursor    int
	cooldown  time.Duration
}

// NewRotating creates a round-robin provider over the given endpoints.
// cooldown of 0 disables failure exclusion.
func NewRotating(endpoints []string, cooldown time.Duration) (*RotatingProvider, error) {
	states := make([]*endpointState, 0, len(endpoints))
	for _, raw := range endpoints {
		u, err := ParseEndpoint(raw)
		if err != nil {
			return nil, err
		}
		states = append(states, &endpointState{url: u})
	}
	return &RotatingProvider{endpoints: states, cooldown: cooldown}, nil
}

// Acquire returns the endpoint at the cursor and advances it, skipping
// endpoints inside their cool-down window.
func (p *RotatingProvider) Acquire(ctx context.Context) (*Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.endpoints) == 0 {
		return nil, utils.NewProxyExhausted("rotating", nil)
	}

	now := time.Now()
	for i := 0; i < len(p.endpoints); i++ {
		idx := (p.cursor + i) % len(p.endpoints)
		ep := p.endpoints[idx]
		if now.Before(ep.cooldownUntil) {
			continue
		}

		p.cursor = (idx + 1) % len(p.endpoints)
		ep.useCount++
		return &Handle{URL: ep.url, Source: "rotating", FetchedAt: now}, nil
	}

	return nil, utils.NewProxyExhausted("rotating", nil)
}

// ReportFailure puts the handle's endpoint into its cool-down window.
func (p *RotatingProvider) ReportFailure(h *Handle, err error) {
	if h == nil || h.URL == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if ep := p.find(h.URL); ep != nil {
		ep.failureCount++
		if p.cooldown > 0 {
			ep.cooldownUntil = time.Now().Add(p.cooldown)
		}
	}
}

// ReportSuccess clears any pending cool-down for the handle's endpoint.
func (p *RotatingProvider) ReportSuccess(h *Handle) {
	if h == nil || h.URL == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if ep := p.find(h.URL); ep != nil {
		ep.cooldownUntil = time.Time{}
	}
}

// Close is a no-op for the rotating provider.
func (p *RotatingProvider) Close() error { return nil }

func (p *RotatingProvider) find(u *url.URL) *endpointState {
	target := u.String()
	for _, ep := range p.endpoints {
		if ep.url.String() == target {
			return ep
		}
	}
	return nil
}

// EndpointStat is a point-in-time view of one rotation slot.
type EndpointStat struct {
	URL          string `json:"url"`
	UseCount     int64  `json:"use_count"`
	FailureCount int64  `json:"failure_count"`
	CoolingDown  bool   `json:"cooling_down"`
}

// Stats returns per-endpoint usage counters.
func (p *RotatingProvider) Stats() []EndpointStat {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	stats := make([]EndpointStat, 0, len(p.endpoints))
	for _, ep := range p.endpoints {
		stats = append(stats, EndpointStat{
			URL:          ep.url.String(),
			UseCount:     ep.useCount,
			FailureCount: ep.failureCount,
			CoolingDown:  now.Before(ep.cooldownUntil),
		})
	}
	return stats
}
