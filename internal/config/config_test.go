package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ddbstore "github.com/coursepilot/coursepilot/internal/store/dynamodb"
	"github.com/coursepilot/coursepilot/internal/store/postgres"
	"github.com/coursepilot/coursepilot/internal/store/redis"
)

func TestLoadFullConfig(t *testing.T) {
	dir := t.TempDir()
	yaml := `
store: redis
redis:
  addr: localhost:6379
  keyPrefix: "cp:"
server:
  addr: ":8080"
  apiKey: secret
collector:
  baseUrl: https://catalog-gw.example.com
  apiKey: gw-key
  timeout: 30s
  retry:
    maxAttempts: 4
cache:
  capacity: 1024
  defaultTtl: 10m
breakers:
  failureThreshold: 3
  recoveryTimeout: 30s
freshness:
  courses: 72h
scoring:
  preference: 0.5
  instructorQuality: 0.25
  timeConvenience: 0.25
refresher:
  enabled: true
  interval: 15m
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Store)
	rc, ok := cfg.Redis.(*redis.Config)
	require.True(t, ok)
	assert.Equal(t, "localhost:6379", rc.Addr)
	assert.Equal(t, "cp:", rc.KeyPrefix)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "https://catalog-gw.example.com", cfg.Collector.BaseURL)
	assert.Equal(t, 4, cfg.Collector.Retry.MaxAttempts)
	assert.Equal(t, 1024, cfg.Cache.Capacity)
	assert.Equal(t, uint32(3), cfg.Breakers.FailureThreshold)
	assert.Equal(t, "72h", cfg.Freshness["courses"])
	assert.Equal(t, 0.5, cfg.Scoring.Preference)
	assert.True(t, cfg.Refresher.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestParseDefaultsToMemoryStore(t *testing.T) {
	cfg, err := Parse([]byte("server:\n  addr: \":8080\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Store)
}

func TestParsePostgresConfig(t *testing.T) {
	cfg, err := Parse([]byte("store: postgres\npostgres:\n  dsn: postgres://localhost/coursepilot\n"))
	require.NoError(t, err)
	pc, ok := cfg.Postgres.(*postgres.Config)
	require.True(t, ok)
	assert.Equal(t, "postgres://localhost/coursepilot", pc.DSN)
}

func TestParseDynamoDBConfig(t *testing.T) {
	cfg, err := Parse([]byte("store: dynamodb\ndynamodb:\n  tableName: coursepilot\n  endpoint: http://localhost:8000\n"))
	require.NoError(t, err)
	dc, ok := cfg.DynamoDB.(*ddbstore.Config)
	require.True(t, ok)
	assert.Equal(t, "coursepilot", dc.TableName)
	assert.Equal(t, "http://localhost:8000", dc.Endpoint)
}

func TestParseValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown store", "store: etcd\n"},
		{"redis without addr", "store: redis\nredis:\n  db: 1\n"},
		{"redis without section", "store: redis\n"},
		{"postgres without dsn", "store: postgres\npostgres: {}\n"},
		{"dynamodb without table", "store: dynamodb\ndynamodb:\n  region: us-east-1\n"},
		{"collector without baseUrl", "collector:\n  apiKey: k\n"},
		{"bad collector timeout", "collector:\n  baseUrl: http://x\n  timeout: soon\n"},
		{"bad cache ttl", "cache:\n  defaultTtl: fast\n"},
		{"bad breaker timeout", "breakers:\n  recoveryTimeout: never\n"},
		{"bad refresher interval", "refresher:\n  enabled: true\n  interval: hourly\n"},
		{"unknown freshness type", "freshness:\n  grades: 24h\n"},
		{"bad freshness ttl", "freshness:\n  courses: weekly\n"},
		{"negative scoring weight", "scoring:\n  preference: -0.1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
