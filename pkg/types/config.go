package types

// ProjectConfig is the top-level coursepilot.yaml configuration.
// Store selects the persistence backend; the backend-specific sections are
// decoded into concrete types by internal/config in a second pass.
type ProjectConfig struct {
	Store string `yaml:"store"` // "memory", "redis", "postgres", "dynamodb"

	// Backend-specific config, decoded by internal/config to avoid an import
	// cycle between types and the store packages.
	Redis    interface{} `yaml:"-"`
	Postgres interface{} `yaml:"-"`
	DynamoDB interface{} `yaml:"-"`

	Server    *ServerConfig     `yaml:"server,omitempty"`
	Collector *CollectorConfig  `yaml:"collector,omitempty"`
	Cache     *CacheConfig      `yaml:"cache,omitempty"`
	Breakers  *BreakerConfig    `yaml:"breakers,omitempty"`
	Freshness map[string]string `yaml:"freshness,omitempty"` // entityType -> TTL, e.g. "courses: 168h"
	Scoring   *ScoringConfig    `yaml:"scoring,omitempty"`
	Refresher *RefresherConfig  `yaml:"refresher,omitempty"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Addr           string `yaml:"addr,omitempty"`
	APIKey         string `yaml:"apiKey,omitempty"`
	MaxRequestBody int64  `yaml:"maxRequestBody,omitempty"`
}

// CollectorConfig configures the external catalog collector client.
type CollectorConfig struct {
	BaseURL string       `yaml:"baseUrl"`
	APIKey  string       `yaml:"apiKey,omitempty"`
	Timeout string       `yaml:"timeout,omitempty"` // per-request, e.g. "30s"
	Retry   *RetryConfig `yaml:"retry,omitempty"`
}

// RetryConfig configures the bounded exponential backoff retry loop used
// inside breaker-guarded collector calls.
type RetryConfig struct {
	MaxAttempts       int     `yaml:"maxAttempts,omitempty"`
	BackoffSeconds    int     `yaml:"backoffSeconds,omitempty"`
	BackoffMultiplier float64 `yaml:"backoffMultiplier,omitempty"`
}

// CacheConfig configures the in-memory query-result cache.
type CacheConfig struct {
	Capacity   int    `yaml:"capacity,omitempty"`
	DefaultTTL string `yaml:"defaultTtl,omitempty"` // e.g. "10m"
}

// BreakerConfig configures the per-dependency circuit breakers.
type BreakerConfig struct {
	FailureThreshold uint32 `yaml:"failureThreshold,omitempty"` // consecutive failures before opening
	RecoveryTimeout  string `yaml:"recoveryTimeout,omitempty"`  // time open before a half-open probe
}

// ScoringConfig overrides the schedule scoring weights. Weights are
// renormalized if they do not sum to 1.
type ScoringConfig struct {
	Preference        float64 `yaml:"preference,omitempty"`
	InstructorQuality float64 `yaml:"instructorQuality,omitempty"`
	TimeConvenience   float64 `yaml:"timeConvenience,omitempty"`
}

// RefresherConfig configures the background staleness refresher.
type RefresherConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Interval string `yaml:"interval,omitempty"` // e.g. "15m"
}
