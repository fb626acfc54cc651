// Package config handles loading and validation of coursepilot.yaml project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	ddbstore "github.com/coursepilot/coursepilot/internal/store/dynamodb"
	"github.com/coursepilot/coursepilot/internal/store/postgres"
	"github.com/coursepilot/coursepilot/internal/store/redis"
	"github.com/coursepilot/coursepilot/pkg/types"
)

// FileName is the project configuration file looked up in the working directory.
const FileName = "coursepilot.yaml"

// storeConfigs is a helper struct used for a second YAML unmarshal pass to
// decode backend-specific config sections into their concrete types.
type storeConfigs struct {
	Redis    *redis.Config    `yaml:"redis,omitempty"`
	Postgres *postgres.Config `yaml:"postgres,omitempty"`
	DynamoDB *ddbstore.Config `yaml:"dynamodb,omitempty"`
}

// Load reads and parses coursepilot.yaml from the given directory.
func Load(dir string) (*types.ProjectConfig, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates raw YAML configuration.
func Parse(data []byte) (*types.ProjectConfig, error) {
	var cfg types.ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Second pass: decode backend-specific sections into concrete types.
	var raw storeConfigs
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing store config: %w", err)
	}
	if raw.Redis != nil {
		cfg.Redis = raw.Redis
	}
	if raw.Postgres != nil {
		cfg.Postgres = raw.Postgres
	}
	if raw.DynamoDB != nil {
		cfg.DynamoDB = raw.DynamoDB
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func validate(cfg *types.ProjectConfig) error {
	switch cfg.Store {
	case "", "memory":
	case "redis":
		rc, _ := cfg.Redis.(*redis.Config)
		if rc == nil {
			return fmt.Errorf("redis config is required when store is redis")
		}
		if rc.Addr == "" {
			return fmt.Errorf("redis.addr is required")
		}
	case "postgres":
		pc, _ := cfg.Postgres.(*postgres.Config)
		if pc == nil {
			return fmt.Errorf("postgres config is required when store is postgres")
		}
		if pc.DSN == "" {
			return fmt.Errorf("postgres.dsn is required")
		}
	case "dynamodb":
		dc, _ := cfg.DynamoDB.(*ddbstore.Config)
		if dc == nil {
			return fmt.Errorf("dynamodb config is required when store is dynamodb")
		}
		if dc.TableName == "" {
			return fmt.Errorf("dynamodb.tableName is required")
		}
	default:
		return fmt.Errorf("unknown store %q", cfg.Store)
	}

	if cfg.Collector != nil && cfg.Collector.BaseURL == "" {
		return fmt.Errorf("collector.baseUrl is required")
	}
	if cfg.Collector != nil && cfg.Collector.Timeout != "" {
		if _, err := time.ParseDuration(cfg.Collector.Timeout); err != nil {
			return fmt.Errorf("collector.timeout: %w", err)
		}
	}
	if cfg.Cache != nil && cfg.Cache.DefaultTTL != "" {
		if _, err := time.ParseDuration(cfg.Cache.DefaultTTL); err != nil {
			return fmt.Errorf("cache.defaultTtl: %w", err)
		}
	}
	if cfg.Breakers != nil && cfg.Breakers.RecoveryTimeout != "" {
		if _, err := time.ParseDuration(cfg.Breakers.RecoveryTimeout); err != nil {
			return fmt.Errorf("breakers.recoveryTimeout: %w", err)
		}
	}
	if cfg.Refresher != nil && cfg.Refresher.Interval != "" {
		if _, err := time.ParseDuration(cfg.Refresher.Interval); err != nil {
			return fmt.Errorf("refresher.interval: %w", err)
		}
	}
	for name, ttl := range cfg.Freshness {
		if !types.ValidEntityType(types.EntityType(name)) {
			return fmt.Errorf("freshness: unknown entity type %q", name)
		}
		if _, err := time.ParseDuration(ttl); err != nil {
			return fmt.Errorf("freshness.%s: %w", name, err)
		}
	}
	if s := cfg.Scoring; s != nil {
		if s.Preference < 0 || s.InstructorQuality < 0 || s.TimeConvenience < 0 {
			return fmt.Errorf("scoring weights must be non-negative")
		}
	}
	return nil
}
