package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apirush/internal/utils"
)

func poolServer(t *testing.T, hits *int64, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(hits, 1)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRemotePool_LazyFetchOnFirstAcquire(t *testing.T) {
	var hits int64
	srv := poolServer(t, &hits, "10.0.0.1:8080\n10.0.0.2:8080\n10.0.0.3:8080\n")

	p, err := NewRemotePool(RemotePoolConfig{SourceURL: srv.URL})
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, int64(0), atomic.LoadInt64(&hits), "no fetch before first Acquire")

	h, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), atomic.LoadInt64(&hits))
	assert.Equal(t, "remote", h.Source)
	assert.Equal(t, 3, p.PoolSize())
}

func TestRemotePool_SingleFlightRefresh(t *testing.T) {
	var hits int64
	gate := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		<-gate
		w.Write([]byte("10.0.0.1:8080\n10.0.0.2:8080\n10.0.0.3:8080\n"))
	}))
	defer srv.Close()

	p, err := NewRemotePool(RemotePoolConfig{SourceURL: srv.URL})
	require.NoError(t, err)
	defer p.Close()

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Acquire(context.Background()); err != nil {
				t.Error(err)
			}
		}()
	}

	// Let the workers pile up on the in-flight fetch, then release it.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&hits),
		"concurrent startup acquires share one fetch")
}

func TestRemotePool_FailureRemovalTriggersRefill(t *testing.T) {
	var hits int64
	srv := poolServer(t, &hits, "10.0.0.1:8080\n10.0.0.2:8080\n")

	p, err := NewRemotePool(RemotePoolConfig{
		SourceURL:       srv.URL,
		MinPoolSize:     2,
		RefreshInterval: time.Hour,
	})
	require.NoError(t, err)
	defer p.Close()

	h, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), atomic.LoadInt64(&hits))

	// Dropping below min_pool_size forces a refill on the next Acquire.
	p.ReportFailure(h, assert.AnError)
	assert.Equal(t, 1, p.PoolSize())

	_, err = p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), atomic.LoadInt64(&hits))
	assert.Equal(t, 2, p.PoolSize())
}

func TestRemotePool_FetchFailureIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p, err := NewRemotePool(RemotePoolConfig{SourceURL: srv.URL})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Acquire(context.Background())
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeProxyExhausted, utils.CodeOf(err))
	assert.True(t, utils.IsRetryable(err))
}

func TestRemotePool_StalePoolServedWhenRefreshFails(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("10.0.0.1:8080\n10.0.0.2:8080\n"))
	}))
	defer srv.Close()

	p, err := NewRemotePool(RemotePoolConfig{
		SourceURL:       srv.URL,
		RefreshInterval: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Acquire(context.Background())
	require.NoError(t, err)

	healthy.Store(false)
	time.Sleep(30 * time.Millisecond)

	// Refresh fails but the stale pool still serves.
	h, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, h.URL)
}

func TestRemotePool_SkipsMalformedEntries(t *testing.T) {
	var hits int64
	srv := poolServer(t, &hits, "10.0.0.1:8080\nnot-a-proxy\n\n10.0.0.2:8080\n")

	p, err := NewRemotePool(RemotePoolConfig{SourceURL: srv.URL})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, p.PoolSize())
}
