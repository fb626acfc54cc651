// Package commands implements the CLI subcommands for the coursepilot binary.
package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/coursepilot/coursepilot/internal/breaker"
	"github.com/coursepilot/coursepilot/internal/cache"
	"github.com/coursepilot/coursepilot/internal/collector"
	"github.com/coursepilot/coursepilot/internal/config"
	"github.com/coursepilot/coursepilot/internal/freshness"
	"github.com/coursepilot/coursepilot/internal/optimizer"
	"github.com/coursepilot/coursepilot/internal/orchestrator"
	"github.com/coursepilot/coursepilot/internal/store"
	ddbstore "github.com/coursepilot/coursepilot/internal/store/dynamodb"
	"github.com/coursepilot/coursepilot/internal/store/memory"
	"github.com/coursepilot/coursepilot/internal/store/postgres"
	"github.com/coursepilot/coursepilot/internal/store/redis"
	"github.com/coursepilot/coursepilot/pkg/types"
)

// app bundles the wired components shared by the subcommands.
type app struct {
	cfg       *types.ProjectConfig
	store     store.Store
	cache     *cache.Cache
	breakers  *breaker.Registry
	policy    *freshness.Policy
	orch      *orchestrator.Orchestrator
	optimizer *optimizer.Optimizer
}

// newStore creates the configured persistence backend.
func newStore(ctx context.Context, cfg *types.ProjectConfig) (store.Store, error) {
	switch cfg.Store {
	case "", "memory":
		return memory.New(), nil
	case "redis":
		rc, ok := cfg.Redis.(*redis.Config)
		if !ok || rc == nil {
			return nil, fmt.Errorf("redis config is required when store is redis")
		}
		return redis.New(rc), nil
	case "postgres":
		pc, ok := cfg.Postgres.(*postgres.Config)
		if !ok || pc == nil {
			return nil, fmt.Errorf("postgres config is required when store is postgres")
		}
		return postgres.New(ctx, pc)
	case "dynamodb":
		dc, ok := cfg.DynamoDB.(*ddbstore.Config)
		if !ok || dc == nil {
			return nil, fmt.Errorf("dynamodb config is required when store is dynamodb")
		}
		return ddbstore.New(dc)
	default:
		return nil, fmt.Errorf("unsupported store: %s", cfg.Store)
	}
}

// newCollector creates the HTTP collector from config, or a stub that always
// fails when no collector is configured.
func newCollector(cfg *types.ProjectConfig) collector.Collector {
	if cfg.Collector == nil || cfg.Collector.BaseURL == "" {
		return collector.Func(func(context.Context, types.EntityType, string, string) (*collector.Result, error) {
			return nil, fmt.Errorf("%w: no collector configured", types.ErrCollector)
		})
	}
	timeout := time.Duration(0)
	if cfg.Collector.Timeout != "" {
		timeout, _ = time.ParseDuration(cfg.Collector.Timeout)
	}
	return collector.NewHTTPCollector(cfg.Collector.BaseURL, cfg.Collector.APIKey, timeout)
}

// buildApp loads coursepilot.yaml from the working directory and wires the
// retrieval and optimization stack.
func buildApp(ctx context.Context) (*app, func(), error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	st, err := newStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating store: %w", err)
	}
	if err := st.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("starting store: %w", err)
	}
	cleanup := func() {
		_ = st.Stop(context.Background())
	}

	capacity := 0
	cacheTTL := time.Duration(0)
	if cfg.Cache != nil {
		capacity = cfg.Cache.Capacity
		if cfg.Cache.DefaultTTL != "" {
			cacheTTL, _ = time.ParseDuration(cfg.Cache.DefaultTTL)
		}
	}
	c := cache.New(capacity)

	brCfg := breaker.Config{}
	if cfg.Breakers != nil {
		brCfg.FailureThreshold = cfg.Breakers.FailureThreshold
		if cfg.Breakers.RecoveryTimeout != "" {
			brCfg.RecoveryTimeout, _ = time.ParseDuration(cfg.Breakers.RecoveryTimeout)
		}
	}
	br := breaker.NewRegistry(brCfg)

	policy, err := freshness.New(cfg.Freshness)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	retry := collector.DefaultRetryPolicy()
	if cfg.Collector != nil && cfg.Collector.Retry != nil {
		r := cfg.Collector.Retry
		if r.MaxAttempts > 0 {
			retry.MaxAttempts = r.MaxAttempts
		}
		if r.BackoffSeconds > 0 {
			retry.BackoffSeconds = r.BackoffSeconds
		}
		if r.BackoffMultiplier > 0 {
			retry.BackoffMultiplier = r.BackoffMultiplier
		}
	}

	orch := orchestrator.New(c, st, br, newCollector(cfg), policy, orchestrator.Options{
		Retry:    retry,
		CacheTTL: cacheTTL,
	})

	weights := optimizer.DefaultWeights()
	if s := cfg.Scoring; s != nil && s.Preference+s.InstructorQuality+s.TimeConvenience > 0 {
		weights = optimizer.Weights{
			Preference:        s.Preference,
			InstructorQuality: s.InstructorQuality,
			TimeConvenience:   s.TimeConvenience,
		}
	}
	opt := optimizer.New(orch, weights)

	return &app{
		cfg:       cfg,
		store:     st,
		cache:     c,
		breakers:  br,
		policy:    policy,
		orch:      orch,
		optimizer: opt,
	}, cleanup, nil
}
