// internal/config/types.go
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "500ms" parse directly.
type Duration time.Duration

// UnmarshalYAML parses Go duration syntax or bare seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		var secs float64
		if err := value.Decode(&secs); err != nil {
			return fmt.Errorf("invalid duration %q", value.Value)
		}
		*d = Duration(time.Duration(secs * float64(time.Second)))
		return nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in Go syntax.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ProxyMode selects the proxy provider variant.
type ProxyMode string

const (
	ProxyModeNone     ProxyMode = "none"
	ProxyModeFixed    ProxyMode = "fixed"
	ProxyModeRotating ProxyMode = "rotating"
	ProxyModeRemote   ProxyMode = "remote"
)

// BackoffType selects the retry wait strategy.
type BackoffType string

const (
	BackoffFixed       BackoffType = "fixed"
	BackoffExponential BackoffType = "exponential"
	BackoffJitter      BackoffType = "jitter"
)

// AppConfig is the root configuration document.
type AppConfig struct {
	Task       TaskConfig       `yaml:"task"`
	Run        RunConfig        `yaml:"run"`
	Retry      RetryConfig      `yaml:"retry"`
	Connection ConnectionConfig `yaml:"connection"`
	Proxy      ProxyConfig      `yaml:"proxy"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Storage    StorageConfig    `yaml:"storage"`
	LogLevel   string           `yaml:"log_level,omitempty"`
	LogJSON    bool             `yaml:"log_json,omitempty"`
}

// TaskConfig identifies the unit of work executed by the CLI.
type TaskConfig struct {
	ID     string            `yaml:"id"`
	Method string            `yaml:"method"`
	URL    string            `yaml:"url"`
	Body   string            `yaml:"body,omitempty"`
	Header map[string]string `yaml:"header,omitempty"`
}

// RunConfig controls admission: how many at once, how many in total, when to
// start, and the pause before every attempt.
type RunConfig struct {
	MaxConcurrent int        `yaml:"max_concurrent"`
	MaxRequests   int        `yaml:"max_requests"`
	ExecuteTime   *time.Time `yaml:"execute_time,omitempty"`
	RequestDelay  Duration   `yaml:"request_delay,omitempty"`
}

// RetryConfig controls failure handling for a single logical request.
type RetryConfig struct {
	MaxRetries        int         `yaml:"max_retries"`
	Backoff           BackoffType `yaml:"backoff,omitempty"`
	Delay             Duration    `yaml:"delay,omitempty"`
	Multiplier        float64     `yaml:"multiplier,omitempty"`
	MaxDelay          Duration    `yaml:"max_delay,omitempty"`
	RetryableStatuses []int       `yaml:"retryable_statuses,omitempty"`
}

// ConnectionConfig carries transport-facing knobs, forwarded to the HTTP
// client without interpretation by the orchestration layer.
type ConnectionConfig struct {
	Timeout            Duration `yaml:"timeout,omitempty"`
	HTTP2              bool     `yaml:"http2,omitempty"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify,omitempty"`
	RateLimit          float64  `yaml:"rate_limit,omitempty"`
	RateBurst          int      `yaml:"rate_burst,omitempty"`
	DecoyHeaders       bool     `yaml:"decoy_headers,omitempty"`
	UserAgents         []string `yaml:"user_agents,omitempty"`
}

// ProxyConfig selects and parameterizes the egress proxy provider.
type ProxyConfig struct {
	Mode            ProxyMode `yaml:"mode"`
	Endpoint        string    `yaml:"endpoint,omitempty"`
	Endpoints       []string  `yaml:"endpoints,omitempty"`
	Cooldown        Duration  `yaml:"cooldown,omitempty"`
	SourceURL       string    `yaml:"source_url,omitempty"`
	RefreshInterval Duration  `yaml:"refresh_interval,omitempty"`
	MinPoolSize     int       `yaml:"min_pool_size,omitempty"`
	FetchTimeout    Duration  `yaml:"fetch_timeout,omitempty"`
}

// MetricsConfig controls the optional monitoring HTTP server.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_address,omitempty"`
}

// StorageConfig controls the optional run-history store.
type StorageConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path,omitempty"`
}
