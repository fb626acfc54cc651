// Package collector defines the external catalog collector capability and its
// HTTP implementation. Collectors are opaque, fallible, and slow; callers must
// invoke them only through the circuit breaker registry.
package collector

import (
	"context"

	"github.com/coursepilot/coursepilot/pkg/types"
)

// Result is one collector run's worth of entities. Exactly one slice is
// populated, matching the requested entity type.
type Result struct {
	Courses     []types.Course     `json:"courses,omitempty"`
	Sections    []types.Section    `json:"sections,omitempty"`
	Instructors []types.Instructor `json:"instructors,omitempty"`
}

// Len returns the number of entities in the result.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Courses) + len(r.Sections) + len(r.Instructors)
}

// Collector fetches catalog entities from an external source. A call may take
// seconds to tens of seconds and is rate-limited upstream.
type Collector interface {
	Collect(ctx context.Context, et types.EntityType, term, institution string) (*Result, error)
}

// Func adapts a plain function to the Collector interface.
type Func func(ctx context.Context, et types.EntityType, term, institution string) (*Result, error)

// Collect implements Collector.
func (f Func) Collect(ctx context.Context, et types.EntityType, term, institution string) (*Result, error) {
	return f(ctx, et, term, institution)
}
