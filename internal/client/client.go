// Package client performs single HTTP exchanges, pinning each attempt to
// the proxy endpoint it was handed.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"apirush/internal/config"
	"apirush/internal/proxy"
	"apirush/internal/utils"
)

// maxResponseBody caps how much of a response body is retained.
const maxResponseBody = 4 << 20

// Request describes one exchange to perform.
type Request struct {
	Method string
	URL    string
	Body   []byte
	Header map[string]string
}

// Response captures the outcome of a completed exchange.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
	Proxy      string
}

// Client issues HTTP requests according to the connection configuration.
// A transport is built and cached per proxy endpoint so connection pools
// are not shared across exit points.
type Client struct {
	cfg        config.ConnectionConfig
	limiter    *rate.Limiter
	userAgents *userAgentPool
	logger     zerolog.Logger

	mu         sync.Mutex
	transports map[string]*http.Transport
}

// New creates a client from the connection configuration. A zero rate
// limit disables global request pacing.
func New(cfg config.ConnectionConfig) *Client {
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		cfg:        cfg,
		limiter:    limiter,
		userAgents: newUserAgentPool(cfg.UserAgents),
		logger:     utils.NewComponentLogger("client"),
		transports: make(map[string]*http.Transport),
	}
}

// Exchange performs one attempt: build the request, route it through the
// given proxy (nil means direct), and classify the outcome. Transport
// failures and non-2xx statuses come back as coded errors; for non-2xx
// the response is returned alongside the error.
func (c *Client) Exchange(ctx context.Context, spec Request, handle *proxy.Handle) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, utils.NewTransportError(err)
		}
	}

	var reader io.Reader
	if len(spec.Body) > 0 {
		reader = bytes.NewReader(spec.Body)
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, spec.URL, reader)
	if err != nil {
		return nil, utils.NewInvalidConfig("target", err.Error())
	}

	req.Header.Set("User-Agent", c.userAgents.next())
	req.Header.Set("Accept", "*/*")
	if c.cfg.DecoyHeaders {
		applyDecoyHeaders(req.Header)
	}
	for k, v := range spec.Header {
		req.Header.Set(k, v)
	}

	httpClient := &http.Client{
		Timeout:   c.cfg.Timeout.Std(),
		Transport: c.transportFor(handle),
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Debug().
			Err(err).
			Str("method", spec.Method).
			Str("proxy", handle.String()).
			Dur("elapsed", elapsed).
			Msg("exchange failed in transport")
		return nil, utils.NewTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, utils.NewTransportError(err)
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		Duration:   elapsed,
		Proxy:      handle.String(),
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, utils.NewHTTPStatusError(resp.StatusCode, spec.URL)
	}

	c.logger.Debug().
		Int("status", resp.StatusCode).
		Str("proxy", out.Proxy).
		Dur("elapsed", elapsed).
		Msg("exchange complete")
	return out, nil
}

// transportFor returns the cached transport for the handle's endpoint,
// building it on first use. The empty key holds the direct transport.
func (c *Client) transportFor(handle *proxy.Handle) *http.Transport {
	key := ""
	if handle != nil && handle.URL != nil {
		key = handle.URL.String()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.transports[key]; ok {
		return t
	}

	t := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   c.cfg.HTTP2,
	}
	if c.cfg.InsecureSkipVerify {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if handle != nil && handle.URL != nil {
		t.Proxy = http.ProxyURL(handle.URL)
	}

	c.transports[key] = t
	return t
}

// Close releases idle connections held by every cached transport.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.transports {
		t.CloseIdleConnections()
	}
}
