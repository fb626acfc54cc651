// Package store defines the persistence backend interface for catalog
// entities and sync metadata.
package store

import (
	"context"
	"time"

	"github.com/coursepilot/coursepilot/pkg/types"
)

// Store is the persistence backend interface. Backends: memory (tests and
// local dev), redis, postgres, dynamodb. Catalog entities are snapshot data:
// a successful collector run replaces the rows for its tuple, so writes are
// upserts keyed by natural key.
type Store interface {
	// Courses, keyed by (code, term, institution). Empty codes selects all
	// courses for the tuple.
	PutCourses(ctx context.Context, courses []types.Course) error
	GetCourses(ctx context.Context, term, institution string, codes []string) ([]types.Course, error)

	// Sections, keyed by id. Empty courseCodes selects all sections for the
	// term and institution.
	PutSections(ctx context.Context, sections []types.Section) error
	GetSections(ctx context.Context, term, institution string, courseCodes []string) ([]types.Section, error)

	// Instructors, keyed by (name, institution). Empty names selects all
	// instructors for the institution.
	PutInstructors(ctx context.Context, instructors []types.Instructor) error
	GetInstructors(ctx context.Context, institution string, names []string) ([]types.Instructor, error)

	// Sync metadata, one row per (entityType, term, institution) tuple.
	// GetSyncMetadata returns (nil, nil) for a tuple never synced.
	PutSyncMetadata(ctx context.Context, meta types.SyncMetadata) error
	GetSyncMetadata(ctx context.Context, et types.EntityType, term, institution string) (*types.SyncMetadata, error)
	ListSyncMetadata(ctx context.Context, institution string) ([]types.SyncMetadata, error)

	// Distributed locking for refresh coordination across instances.
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error

	// Lifecycle
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Ping(ctx context.Context) error
}
