// Package breaker provides a registry of per-dependency circuit breakers.
package breaker

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/coursepilot/coursepilot/pkg/types"
)

// Defaults applied when config leaves a field unset.
const (
	DefaultFailureThreshold = 5
	DefaultRecoveryTimeout  = 60 * time.Second
)

// Config holds the shared breaker settings. Every dependency registered in a
// Registry uses the same thresholds; isolation is per dependency name.
type Config struct {
	FailureThreshold uint32        // consecutive failures before opening
	RecoveryTimeout  time.Duration // time spent open before a half-open probe
}

// DefaultConfig returns the default breaker settings.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: DefaultFailureThreshold,
		RecoveryTimeout:  DefaultRecoveryTimeout,
	}
}

// Status is a point-in-time snapshot of one dependency's breaker.
type Status struct {
	Name                string `json:"name"`
	State               string `json:"state"` // "closed", "half-open", "open"
	ConsecutiveFailures uint32 `json:"consecutiveFailures"`
}

// Registry owns one circuit breaker per named external dependency. Breakers
// are created lazily on first use and never removed. State transitions are
// atomic with respect to concurrent Execute calls on the same name; while a
// breaker is open, at most one probe call passes through per recovery window
// and all other callers fail fast.
type Registry struct {
	mu       sync.Mutex
	config   Config
	breakers map[string]*gobreaker.CircuitBreaker
	logger   *slog.Logger
}

// NewRegistry creates a Registry with the given config, filling in defaults
// for unset fields.
func NewRegistry(config Config) *Registry {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = DefaultFailureThreshold
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = DefaultRecoveryTimeout
	}
	return &Registry{
		config:   config,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		logger:   slog.Default(),
	}
}

// SetLogger overrides the default logger.
func (r *Registry) SetLogger(l *slog.Logger) {
	if l != nil {
		r.logger = l
	}
}

// Execute runs fn under the breaker for name. If the breaker is open and the
// recovery timeout has not elapsed, fn is not invoked and the call fails fast
// with types.ErrCircuitOpen. A concurrent caller losing the half-open probe
// race also fails fast.
func (r *Registry) Execute(name string, fn func() (interface{}, error)) (interface{}, error) {
	out, err := r.breaker(name).Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: dependency %q", types.ErrCircuitOpen, name)
	}
	return out, err
}

// State returns the current state string for name. Unused names report closed.
func (r *Registry) State(name string) string {
	return r.breaker(name).State().String()
}

// Snapshot returns the status of every breaker created so far.
func (r *Registry) Snapshot() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	statuses := make([]Status, 0, len(r.breakers))
	for name, cb := range r.breakers {
		statuses = append(statuses, Status{
			Name:                name,
			State:               cb.State().String(),
			ConsecutiveFailures: cb.Counts().ConsecutiveFailures,
		})
	}
	return statuses
}

func (r *Registry) breaker(name string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[name]; ok {
		return cb
	}

	threshold := r.config.FailureThreshold
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1, // single probe while half-open
		Timeout:     r.config.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn("circuit breaker state change",
				"dependency", name, "from", from.String(), "to", to.String())
		},
	})
	r.breakers[name] = cb
	return cb
}
