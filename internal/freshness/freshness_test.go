package freshness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursepilot/coursepilot/pkg/types"
)

func TestPolicy_DefaultTTLs(t *testing.T) {
	p := Default()

	assert.Equal(t, DefaultCatalogTTL, p.TTL(types.EntityCourses))
	assert.Equal(t, DefaultCatalogTTL, p.TTL(types.EntitySections))
	assert.Equal(t, DefaultRatingTTL, p.TTL(types.EntityInstructors))
}

func TestPolicy_IsStale(t *testing.T) {
	p := Default()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		entityType types.EntityType
		lastSyncAt time.Time
		wantStale  bool
	}{
		{"never synced", types.EntityCourses, time.Time{}, true},
		{"synced just now", types.EntityCourses, now, false},
		{"within catalog window", types.EntityCourses, now.Add(-6 * 24 * time.Hour), false},
		{"at exact catalog boundary", types.EntityCourses, now.Add(-7 * 24 * time.Hour), false},
		{"past catalog window", types.EntitySections, now.Add(-8 * 24 * time.Hour), true},
		{"rating data ages slower", types.EntityInstructors, now.Add(-8 * 24 * time.Hour), false},
		{"past rating window", types.EntityInstructors, now.Add(-31 * 24 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStale, p.IsStale(tt.entityType, tt.lastSyncAt, now))
		})
	}
}

func TestNew_Overrides(t *testing.T) {
	p, err := New(map[string]string{"courses": "1h"})
	require.NoError(t, err)

	assert.Equal(t, time.Hour, p.TTL(types.EntityCourses))
	// Other types keep defaults.
	assert.Equal(t, DefaultCatalogTTL, p.TTL(types.EntitySections))
}

func TestNew_RejectsBadOverrides(t *testing.T) {
	_, err := New(map[string]string{"widgets": "1h"})
	assert.Error(t, err)

	_, err = New(map[string]string{"courses": "soon"})
	assert.Error(t, err)

	_, err = New(map[string]string{"courses": "-5m"})
	assert.Error(t, err)
}
