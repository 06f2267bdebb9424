// Package proxy supplies egress proxy endpoints to the request workers and
// tracks per-endpoint failure feedback.
package proxy

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// Handle is an opaque endpoint descriptor issued by a Provider. Workers
// borrow a Handle for one attempt and report the outcome back; they never
// own or mutate it.
type Handle struct {
	URL       *url.URL
	Source    string
	FetchedAt time.Time
}

// String returns the endpoint URL, or "direct" for a nil handle.
func (h *Handle) String() string {
	if h == nil || h.URL == nil {
		return "direct"
	}
	return h.URL.String()
}

// Provider is the proxy-selection capability. Implementations must be safe
// for concurrent use by many workers.
type Provider interface {
	// Acquire returns an endpoint for one attempt. An empty or fully
	// cooled-down pool fails with a PROXY_EXHAUSTED error.
	Acquire(ctx context.Context) (*Handle, error)

	// ReportFailure informs the provider that an attempt through the
	// handle failed, before the next attempt selects a new endpoint.
	ReportFailure(h *Handle, err error)

	// ReportSuccess clears the failure streak of the handle's endpoint.
	ReportSuccess(h *Handle)

	// Close releases provider resources.
	Close() error
}

// ParseEndpoint validates and normalizes a proxy endpoint. Bare "ip:port"
// entries get an http scheme; the host must be an IPv4 address or hostname
// with a port in 1..65535.
func ParseEndpoint(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty proxy endpoint")
	}

	if _, _, err := net.SplitHostPort(raw); err == nil {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy endpoint %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("proxy endpoint %q must use http or https", raw)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("proxy endpoint %q has no host", raw)
	}

	portStr := u.Port()
	if portStr == "" {
		return nil, fmt.Errorf("proxy endpoint %q has no port", raw)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return nil, fmt.Errorf("proxy endpoint %q has an invalid port", raw)
	}

	return u, nil
}
