// internal/proxy/provider.go
package proxy

import (
	"fmt"

	"apirush/internal/config"
)

// NewFromConfig builds the provider selected by the proxy configuration.
// Mode "none" yields a nil Provider, meaning direct connections. Callers
// with bespoke selection logic can skip this factory and pass any Provider
// implementation to the runner directly.
func NewFromConfig(cfg config.ProxyConfig) (Provider, error) {
	switch cfg.Mode {
	case config.ProxyModeNone, "":
		return nil, nil
	case config.ProxyModeFixed:
		return NewFixed(cfg.Endpoint)
	case config.ProxyModeRotating:
		return NewRotating(cfg.Endpoints, cfg.Cooldown.Std())
	case config.ProxyModeRemote:
		return NewRemotePool(RemotePoolConfig{
			SourceURL:       cfg.SourceURL,
			RefreshInterval: cfg.RefreshInterval.Std(),
			MinPoolSize:     cfg.MinPoolSize,
			FetchTimeout:    cfg.FetchTimeout.Std(),
		})
	default:
		return nil, fmt.Errorf("unknown proxy mode %q", cfg.Mode)
	}
}
