package client

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apirush/internal/config"
	"apirush/internal/proxy"
	"apirush/internal/utils"
)

func TestExchange_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(config.ConnectionConfig{})
	defer c.Close()

	resp, err := c.Exchange(context.Background(), Request{Method: http.MethodPost, URL: srv.URL, Body: []byte(`{}`)}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, `{"ok":true}`, string(resp.Body))
	assert.Equal(t, "direct", resp.Proxy)
}

func TestExchange_NonSuccessStatusIsCodedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(config.ConnectionConfig{})
	defer c.Close()

	resp, err := c.Exchange(context.Background(), Request{Method: http.MethodGet, URL: srv.URL}, nil)
	require.Error(t, err)
	require.NotNil(t, resp, "response accompanies the status error")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	status, ok := utils.StatusOf(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.True(t, utils.IsRetryable(err))
}

func TestExchange_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(config.ConnectionConfig{})
	defer c.Close()

	_, err := c.Exchange(context.Background(), Request{Method: http.MethodGet, URL: srv.URL}, nil)
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeTransport, utils.CodeOf(err))
	assert.True(t, utils.IsRetryable(err))
}

func TestExchange_RoutesThroughProxy(t *testing.T) {
	var proxied atomic.Int64
	proxySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxied.Add(1)
		assert.True(t, r.URL.IsAbs(), "proxy receives the absolute target URL")
		w.Write([]byte("via proxy"))
	}))
	defer proxySrv.Close()

	u, err := proxy.ParseEndpoint(proxySrv.URL)
	require.NoError(t, err)
	handle := &proxy.Handle{URL: u, Source: "fixed"}

	c := New(config.ConnectionConfig{})
	defer c.Close()

	resp, err := c.Exchange(context.Background(), Request{Method: http.MethodGet, URL: "http://203.0.113.10/resource"}, handle)
	require.NoError(t, err)
	assert.Equal(t, int64(1), proxied.Load())
	assert.Equal(t, "via proxy", string(resp.Body))
	assert.Equal(t, u.String(), resp.Proxy)
}

func TestExchange_DecoyHeaders(t *testing.T) {
	var forwarded string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		forwarded = r.Header.Get("X-Forwarded-For")
		assert.Equal(t, forwarded, r.Header.Get("X-Real-IP"))
		assert.NotEmpty(t, r.Header.Get("Accept-Language"))
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))
	}))
	defer srv.Close()

	c := New(config.ConnectionConfig{DecoyHeaders: true})
	defer c.Close()

	_, err := c.Exchange(context.Background(), Request{Method: http.MethodGet, URL: srv.URL}, nil)
	require.NoError(t, err)

	ip := net.ParseIP(forwarded)
	require.NotNil(t, ip, "forged address parses")
	assert.False(t, ip.IsPrivate())
	assert.False(t, ip.IsLoopback())
	assert.False(t, ip.IsLinkLocalUnicast())
	assert.False(t, ip.IsMulticast())
}

func TestExchange_UserAgentRotation(t *testing.T) {
	seen := make(map[string]bool)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[r.Header.Get("User-Agent")] = true
	}))
	defer srv.Close()

	c := New(config.ConnectionConfig{UserAgents: []string{"agent-a", "agent-b"}})
	defer c.Close()

	for i := 0; i < 4; i++ {
		_, err := c.Exchange(context.Background(), Request{Method: http.MethodGet, URL: srv.URL}, nil)
		require.NoError(t, err)
	}
	assert.True(t, seen["agent-a"])
	assert.True(t, seen["agent-b"])
}

func TestExchange_GlobalRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := New(config.ConnectionConfig{RateLimit: 20, RateBurst: 1})
	defer c.Close()

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Exchange(context.Background(), Request{Method: http.MethodGet, URL: srv.URL}, nil)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond,
		"second and third request each wait for a token")
}
