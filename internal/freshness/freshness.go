// Package freshness decides whether stored catalog data is within its
// entity-type TTL window. Pure policy: no I/O, no clocks of its own.
package freshness

import (
	"fmt"
	"time"

	"github.com/coursepilot/coursepilot/pkg/types"
)

// Default TTLs per entity type. Catalog structure changes rarely; rating
// data drifts even slower.
const (
	DefaultCatalogTTL = 7 * 24 * time.Hour
	DefaultRatingTTL  = 30 * 24 * time.Hour
)

// Policy maps entity types to TTLs.
type Policy struct {
	ttls map[types.EntityType]time.Duration
}

// Default returns the policy with the built-in TTL table.
func Default() *Policy {
	return &Policy{ttls: map[types.EntityType]time.Duration{
		types.EntityCourses:     DefaultCatalogTTL,
		types.EntitySections:    DefaultCatalogTTL,
		types.EntityInstructors: DefaultRatingTTL,
	}}
}

// New returns the default policy with per-type TTL overrides applied.
// Override values are duration strings, e.g. "168h".
func New(overrides map[string]string) (*Policy, error) {
	p := Default()
	for name, raw := range overrides {
		et := types.EntityType(name)
		if !types.ValidEntityType(et) {
			return nil, fmt.Errorf("freshness: unknown entity type %q", name)
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("freshness: invalid TTL for %s: %w", name, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("freshness: TTL for %s must be positive", name)
		}
		p.ttls[et] = d
	}
	return p, nil
}

// TTL returns the freshness window for an entity type. Unknown types get the
// catalog default.
func (p *Policy) TTL(et types.EntityType) time.Duration {
	if d, ok := p.ttls[et]; ok {
		return d
	}
	return DefaultCatalogTTL
}

// IsStale reports whether data last synced at lastSyncAt has outlived its TTL
// at the instant now. A zero lastSyncAt (never synced) is always stale.
func (p *Policy) IsStale(et types.EntityType, lastSyncAt, now time.Time) bool {
	if lastSyncAt.IsZero() {
		return true
	}
	return now.Sub(lastSyncAt) > p.TTL(et)
}
