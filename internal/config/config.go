// internal/config/config.go
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"apirush/internal/utils"
)

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(filename string) (*AppConfig, error) {
	if filename == "" {
		return nil, utils.NewInvalidConfig("config", "filename cannot be empty")
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes. ${VAR} and
// ${VAR:-default} references are substituted from the environment before
// parsing.
func LoadFromBytes(data []byte) (*AppConfig, error) {
	if len(data) == 0 {
		return nil, utils.NewInvalidConfig("config", "configuration data cannot be empty")
	}

	expanded := expandEnvironmentVariables(string(data))

	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

func expandEnvironmentVariables(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if v, ok := os.LookupEnv(groups[1]); ok {
			return v
		}
		return groups[3]
	})
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Task.Method == "" {
		cfg.Task.Method = "GET"
	}
	cfg.Task.Method = strings.ToUpper(cfg.Task.Method)

	if cfg.Run.MaxConcurrent == 0 {
		cfg.Run.MaxConcurrent = 1
	}
	if cfg.Run.MaxRequests == 0 {
		cfg.Run.MaxRequests = cfg.Run.MaxConcurrent
	}

	if cfg.Retry.Backoff == "" {
		cfg.Retry.Backoff = BackoffFixed
	}
	if cfg.Retry.Delay == 0 {
		cfg.Retry.Delay = Duration(time.Second)
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry.Multiplier = 2.0
	}
	if len(cfg.Retry.RetryableStatuses) == 0 {
		cfg.Retry.RetryableStatuses = []int{429, 500, 502, 503, 504}
	}

	if cfg.Connection.Timeout == 0 {
		cfg.Connection.Timeout = Duration(30 * time.Second)
	}
	if cfg.Connection.RateBurst == 0 {
		cfg.Connection.RateBurst = 1
	}

	if cfg.Proxy.Mode == "" {
		cfg.Proxy.Mode = ProxyModeNone
	}
	if cfg.Proxy.RefreshInterval == 0 {
		cfg.Proxy.RefreshInterval = Duration(5 * time.Minute)
	}
	if cfg.Proxy.MinPoolSize == 0 {
		cfg.Proxy.MinPoolSize = 1
	}
	if cfg.Proxy.FetchTimeout == 0 {
		cfg.Proxy.FetchTimeout = Duration(5 * time.Second)
	}

	if cfg.Metrics.ListenAddress == "" {
		cfg.Metrics.ListenAddress = ":9090"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "apirush.db"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// Validate checks the configuration before any attempt is made. Violations
// surface as INVALID_CONFIG errors.
func (c *AppConfig) Validate() error {
	if c.Run.MaxConcurrent <= 0 {
		return utils.NewInvalidConfig("run.max_concurrent", "must be a positive integer")
	}
	if c.Run.MaxRequests <= 0 {
		return utils.NewInvalidConfig("run.max_requests", "must be a positive integer")
	}
	if c.Run.RequestDelay < 0 {
		return utils.NewInvalidConfig("run.request_delay", "must not be negative")
	}

	if c.Retry.MaxRetries < 0 {
		return utils.NewInvalidConfig("retry.max_retries", "must not be negative")
	}
	switch c.Retry.Backoff {
	case BackoffFixed, BackoffExponential, BackoffJitter:
	default:
		return utils.NewInvalidConfig("retry.backoff",
			fmt.Sprintf("unknown strategy %q", c.Retry.Backoff))
	}
	for _, status := range c.Retry.RetryableStatuses {
		if status < 100 || status > 599 {
			return utils.NewInvalidConfig("retry.retryable_statuses",
				fmt.Sprintf("%d is not a valid HTTP status code", status))
		}
	}

	if c.Connection.Timeout < 0 {
		return utils.NewInvalidConfig("connection.timeout", "must not be negative")
	}
	if c.Connection.RateLimit < 0 {
		return utils.NewInvalidConfig("connection.rate_limit", "must not be negative")
	}

	switch c.Proxy.Mode {
	case ProxyModeNone:
	case ProxyModeFixed:
		if err := validateEndpoint(c.Proxy.Endpoint); err != nil {
			return utils.NewInvalidConfig("proxy.endpoint", err.Error())
		}
	case ProxyModeRotating:
		if len(c.Proxy.Endpoints) == 0 {
			return utils.NewInvalidConfig("proxy.endpoints", "at least one endpoint is required")
		}
		for _, ep := range c.Proxy.Endpoints {
			if err := validateEndpoint(ep); err != nil {
				return utils.NewInvalidConfig("proxy.endpoints", err.Error())
			}
		}
	case ProxyModeRemote:
		if c.Proxy.SourceURL == "" {
			return utils.NewInvalidConfig("proxy.source_url", "required for remote mode")
		}
		if _, err := url.ParseRequestURI(c.Proxy.SourceURL); err != nil {
			return utils.NewInvalidConfig("proxy.source_url", err.Error())
		}
	default:
		return utils.NewInvalidConfig("proxy.mode",
			fmt.Sprintf("unknown mode %q", c.Proxy.Mode))
	}

	if c.Task.URL != "" {
		if _, err := url.ParseRequestURI(c.Task.URL); err != nil {
			return utils.NewInvalidConfig("task.url", err.Error())
		}
	}

	return nil
}

func validateEndpoint(endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}
	// Bare host:port entries default to an http scheme.
	if _, _, err := net.SplitHostPort(endpoint); err == nil {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint %q must use http or https", endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint %q has no host", endpoint)
	}
	return nil
}
