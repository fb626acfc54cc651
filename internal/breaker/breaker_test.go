package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursepilot/coursepilot/pkg/types"
)

var errBoom = errors.New("boom")

func failing() (interface{}, error) { return nil, errBoom }
func succeeding() (interface{}, error) { return "ok", nil }

func TestRegistry_StartsClosed(t *testing.T) {
	r := NewRegistry(DefaultConfig())

	assert.Equal(t, "closed", r.State("course-collector"))

	out, err := r.Execute("course-collector", succeeding)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestRegistry_OpensAfterConsecutiveFailures(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 5, RecoveryTimeout: time.Minute})

	for i := 0; i < 5; i++ {
		_, err := r.Execute("course-collector", failing)
		require.ErrorIs(t, err, errBoom)
	}

	assert.Equal(t, "open", r.State("course-collector"))
}

func TestRegistry_OpenFailsFastWithoutInvoking(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 2, RecoveryTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		_, _ = r.Execute("rating-collector", failing)
	}

	invoked := false
	_, err := r.Execute("rating-collector", func() (interface{}, error) {
		invoked = true
		return nil, nil
	})
	require.ErrorIs(t, err, types.ErrCircuitOpen)
	assert.False(t, invoked, "open breaker must not invoke fn")
}

func TestRegistry_SuccessResetsFailureCount(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 3, RecoveryTimeout: time.Minute})

	_, _ = r.Execute("course-collector", failing)
	_, _ = r.Execute("course-collector", failing)
	_, err := r.Execute("course-collector", succeeding)
	require.NoError(t, err)

	// Two more failures must not open the breaker: the count was reset.
	_, _ = r.Execute("course-collector", failing)
	_, _ = r.Execute("course-collector", failing)
	assert.Equal(t, "closed", r.State("course-collector"))
}

func TestRegistry_HalfOpenProbeSuccessCloses(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 1, RecoveryTimeout: 5 * time.Millisecond})

	_, _ = r.Execute("course-collector", failing)
	require.Equal(t, "open", r.State("course-collector"))

	time.Sleep(10 * time.Millisecond)

	// Exactly one success while half-open closes the breaker.
	_, err := r.Execute("course-collector", succeeding)
	require.NoError(t, err)
	assert.Equal(t, "closed", r.State("course-collector"))
}

func TestRegistry_HalfOpenProbeFailureReopens(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 1, RecoveryTimeout: 5 * time.Millisecond})

	_, _ = r.Execute("course-collector", failing)
	time.Sleep(10 * time.Millisecond)

	_, err := r.Execute("course-collector", failing)
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, "open", r.State("course-collector"))

	_, err = r.Execute("course-collector", succeeding)
	assert.ErrorIs(t, err, types.ErrCircuitOpen, "re-opened breaker fails fast again")
}

func TestRegistry_DependenciesAreIsolated(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 1, RecoveryTimeout: time.Minute})

	_, _ = r.Execute("course-collector", failing)

	assert.Equal(t, "open", r.State("course-collector"))
	assert.Equal(t, "closed", r.State("rating-collector"))

	_, err := r.Execute("rating-collector", succeeding)
	assert.NoError(t, err)
}

func TestRegistry_Snapshot(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 1, RecoveryTimeout: time.Minute})

	_, _ = r.Execute("course-collector", failing)
	_, _ = r.Execute("persistent-store", succeeding)

	statuses := r.Snapshot()
	require.Len(t, statuses, 2)

	byName := map[string]Status{}
	for _, s := range statuses {
		byName[s.Name] = s
	}
	assert.Equal(t, "open", byName["course-collector"].State)
	assert.Equal(t, "closed", byName["persistent-store"].State)
}

func TestRegistry_ZeroConfigUsesDefaults(t *testing.T) {
	r := NewRegistry(Config{})
	assert.Equal(t, uint32(DefaultFailureThreshold), r.config.FailureThreshold)
	assert.Equal(t, DefaultRecoveryTimeout, r.config.RecoveryTimeout)
}
