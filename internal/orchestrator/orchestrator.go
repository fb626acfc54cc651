// Package orchestrator composes the cache, persistent store, freshness policy,
// and breaker-guarded collector into a single retrieval fallback chain:
// cache, then store with freshness check, then collector, then degraded stale
// data. Every response discloses its provenance via FetchMetadata.
package orchestrator

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/singleflight"

	"github.com/coursepilot/coursepilot/internal/breaker"
	"github.com/coursepilot/coursepilot/internal/cache"
	"github.com/coursepilot/coursepilot/internal/collector"
	"github.com/coursepilot/coursepilot/internal/freshness"
	"github.com/coursepilot/coursepilot/internal/metrics"
	"github.com/coursepilot/coursepilot/internal/store"
	"github.com/coursepilot/coursepilot/pkg/types"
)

const (
	// DefaultCacheTTL bounds how long a query result is served from memory
	// before the store and freshness policy are consulted again.
	DefaultCacheTTL = 15 * time.Minute

	// DefaultSyncTimeout bounds one background refresh attempt, retries
	// included.
	DefaultSyncTimeout = 5 * time.Minute

	// inProgressGrace is how long a persisted IN_PROGRESS row from another
	// instance is trusted before it is considered abandoned.
	inProgressGrace = 5 * time.Minute

	warnStale       = "using stale data, live refresh unavailable"
	warnRefreshFail = "live refresh failed, serving stale data"
	warnInProgress  = "refresh already in progress, serving existing data"
)

// Orchestrator is the retrieval front door. Concurrent refreshes of the same
// (entityType, term, institution) tuple are deduplicated in-process with
// singleflight; the persisted IN_PROGRESS sync row keeps other instances from
// starting duplicates.
type Orchestrator struct {
	cache     *cache.Cache
	store     store.Store
	breakers  *breaker.Registry
	collector collector.Collector
	policy    *freshness.Policy
	retry     collector.RetryPolicy

	cacheTTL    time.Duration
	syncTimeout time.Duration
	logger      *slog.Logger
	group       singleflight.Group
	now         func() time.Time
}

// Options carries the optional knobs for New.
type Options struct {
	Retry       collector.RetryPolicy
	CacheTTL    time.Duration
	SyncTimeout time.Duration
}

// New wires an Orchestrator from its collaborators.
func New(c *cache.Cache, st store.Store, br *breaker.Registry, col collector.Collector, policy *freshness.Policy, opts Options) *Orchestrator {
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = collector.DefaultRetryPolicy()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.SyncTimeout <= 0 {
		opts.SyncTimeout = DefaultSyncTimeout
	}
	return &Orchestrator{
		cache:       c,
		store:       st,
		breakers:    br,
		collector:   col,
		policy:      policy,
		retry:       opts.Retry,
		cacheTTL:    opts.CacheTTL,
		syncTimeout: opts.SyncTimeout,
		logger:      slog.Default(),
		now:         time.Now,
	}
}

// SetLogger overrides the default logger.
func (o *Orchestrator) SetLogger(l *slog.Logger) {
	if l != nil {
		o.logger = l
	}
}

// SetClock overrides the time source. Tests only.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}

type cached struct {
	result *collector.Result
	meta   types.FetchMetadata
}

// Fetch retrieves entities for a query through the fallback chain. The
// returned metadata always reports which tier served the data and whether the
// response is degraded. Only a true absence of data in every tier surfaces as
// an error.
func (o *Orchestrator) Fetch(ctx context.Context, et types.EntityType, q types.Query, autoPopulate bool) (*collector.Result, types.FetchMetadata, error) {
	if !types.ValidEntityType(et) {
		return nil, types.FetchMetadata{}, fmt.Errorf("%w: unknown entity type %q", types.ErrValidation, et)
	}
	if q.Term == "" && et != types.EntityInstructors {
		return nil, types.FetchMetadata{}, fmt.Errorf("%w: term is required", types.ErrValidation)
	}
	if q.Institution == "" {
		return nil, types.FetchMetadata{}, fmt.Errorf("%w: institution is required", types.ErrValidation)
	}
	metrics.FetchesTotal.Add(1)

	key := cacheKey(et, q)
	if v, hit := o.cache.Get(key); hit {
		entry := v.(cached)
		fm := entry.meta
		fm.Source = types.SourceCache
		return entry.result, fm, nil
	}

	result, readErr := o.readStore(ctx, et, q)
	if readErr != nil && !autoPopulate {
		return nil, types.FetchMetadata{}, fmt.Errorf("%w: %v", types.ErrStore, readErr)
	}
	if readErr != nil {
		o.logger.Warn("store read failed, continuing to collector", "entityType", et, "error", readErr)
		result = &collector.Result{}
	}

	meta, metaErr := o.store.GetSyncMetadata(ctx, et, q.Term, q.Institution)
	if metaErr != nil {
		o.logger.Warn("sync metadata read failed, treating tuple as stale", "entityType", et, "error", metaErr)
		meta = nil
	}

	lastSync := time.Time{}
	if meta != nil {
		lastSync = meta.LastSyncAt
	}
	fresh := result.Len() > 0 && !o.policy.IsStale(et, lastSync, o.now())

	if fresh {
		fm := fetchMeta(types.SourceStore, true, false, nil, lastSync)
		o.cache.Set(key, cached{result: result, meta: fm}, o.cacheTTL)
		return result, fm, nil
	}

	if !autoPopulate {
		return o.degraded(key, result, lastSync, "catalog data is stale")
	}

	if meta != nil && meta.Status == types.SyncInProgress && o.now().Sub(meta.UpdatedAt) < inProgressGrace {
		return o.degraded(key, result, lastSync, warnInProgress)
	}

	refreshed, refreshErr := o.refresh(ctx, et, q.Term, q.Institution)
	if refreshErr == nil {
		filtered := filterResult(et, refreshed, q)
		now := o.now()
		fm := fetchMeta(types.SourceCollector, true, false, nil, now)
		o.cache.Set(key, cached{result: filtered, meta: fm}, o.cacheTTL)
		return filtered, fm, nil
	}

	warning := warnRefreshFail
	if errors.Is(refreshErr, types.ErrCircuitOpen) {
		warning = warnStale
	}
	if result.Len() == 0 {
		if errors.Is(refreshErr, types.ErrCircuitOpen) || errors.Is(refreshErr, types.ErrStore) {
			return nil, types.FetchMetadata{}, refreshErr
		}
		return nil, types.FetchMetadata{}, fmt.Errorf("%w: %v", types.ErrCollector, refreshErr)
	}
	return o.degraded(key, result, lastSync, warning)
}

// Sections fetches the sections for a set of course codes. Convenience
// adapter for the optimizer.
func (o *Orchestrator) Sections(ctx context.Context, term, institution string, courseCodes []string, autoPopulate bool) ([]types.Section, types.FetchMetadata, error) {
	q := types.Query{Term: term, Institution: institution, CourseCodes: courseCodes}
	result, fm, err := o.Fetch(ctx, types.EntitySections, q, autoPopulate)
	if err != nil {
		return nil, fm, err
	}
	return result.Sections, fm, nil
}

// Instructors fetches instructor rating profiles by name. Convenience adapter
// for the optimizer.
func (o *Orchestrator) Instructors(ctx context.Context, institution string, names []string, autoPopulate bool) ([]types.Instructor, types.FetchMetadata, error) {
	q := types.Query{Institution: institution, InstructorNames: names}
	result, fm, err := o.Fetch(ctx, types.EntityInstructors, q, autoPopulate)
	if err != nil {
		return nil, fm, err
	}
	return result.Instructors, fm, nil
}

// TriggerSync starts a background refresh for a tuple and returns immediately.
// Without force, a tuple already refreshing rejects with ErrSyncInProgress.
func (o *Orchestrator) TriggerSync(ctx context.Context, et types.EntityType, term, institution string, force bool) error {
	if !types.ValidEntityType(et) {
		return fmt.Errorf("%w: unknown entity type %q", types.ErrValidation, et)
	}
	if institution == "" {
		return fmt.Errorf("%w: institution is required", types.ErrValidation)
	}

	meta, err := o.store.GetSyncMetadata(ctx, et, term, institution)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrStore, err)
	}
	if !force && meta != nil && meta.Status == types.SyncInProgress && o.now().Sub(meta.UpdatedAt) < inProgressGrace {
		return fmt.Errorf("%w: %s", types.ErrSyncInProgress, types.SyncTuple(et, term, institution))
	}

	metrics.SyncsTriggered.Add(1)
	go func() {
		syncCtx, cancel := context.WithTimeout(context.Background(), o.syncTimeout)
		defer cancel()
		if _, err := o.refresh(syncCtx, et, term, institution); err != nil {
			o.logger.Error("background sync failed",
				"tuple", types.SyncTuple(et, term, institution), "error", err)
		}
	}()
	return nil
}

// SyncStatus returns the sync row for a tuple, or nil if the tuple was never
// synced.
func (o *Orchestrator) SyncStatus(ctx context.Context, et types.EntityType, term, institution string) (*types.SyncMetadata, error) {
	if !types.ValidEntityType(et) {
		return nil, fmt.Errorf("%w: unknown entity type %q", types.ErrValidation, et)
	}
	meta, err := o.store.GetSyncMetadata(ctx, et, term, institution)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStore, err)
	}
	return meta, nil
}

// Refresh collects a tuple from the external source and persists the result.
// Exposed for the background refresher; Fetch and TriggerSync use it too.
func (o *Orchestrator) Refresh(ctx context.Context, et types.EntityType, term, institution string) error {
	_, err := o.refresh(ctx, et, term, institution)
	return err
}

// refresh runs one collect-and-persist attempt, deduplicated per tuple.
func (o *Orchestrator) refresh(ctx context.Context, et types.EntityType, term, institution string) (*collector.Result, error) {
	tuple := types.SyncTuple(et, term, institution)
	v, err, _ := o.group.Do(tuple, func() (interface{}, error) {
		return o.doRefresh(ctx, et, term, institution)
	})
	if err != nil {
		return nil, err
	}
	return v.(*collector.Result), nil
}

func (o *Orchestrator) doRefresh(ctx context.Context, et types.EntityType, term, institution string) (*collector.Result, error) {
	attemptID := ulid.MustNew(ulid.Timestamp(o.now()), rand.Reader).String()
	tuple := types.SyncTuple(et, term, institution)
	o.logger.Info("starting catalog refresh", "tuple", tuple, "attemptId", attemptID)

	o.writeSyncMeta(ctx, et, term, institution, types.SyncInProgress, time.Time{}, "", attemptID)

	metrics.CollectorCalls.Add(1)
	out, err := o.breakers.Execute(string(et)+"-collector", func() (interface{}, error) {
		var result *collector.Result
		retryErr := collector.WithRetry(ctx, o.retry, func(ctx context.Context) error {
			var collectErr error
			result, collectErr = o.collector.Collect(ctx, et, term, institution)
			return collectErr
		})
		return result, retryErr
	})
	if err != nil {
		metrics.CollectorFailures.Add(1)
		metrics.SyncsFailed.Add(1)
		if errors.Is(err, types.ErrCircuitOpen) {
			metrics.BreakerFastFails.Add(1)
		}
		o.writeSyncMeta(ctx, et, term, institution, types.SyncFailed, time.Time{}, err.Error(), attemptID)
		o.logger.Warn("catalog refresh failed", "tuple", tuple, "attemptId", attemptID, "error", err)
		return nil, err
	}

	result := out.(*collector.Result)
	if err := o.persist(ctx, et, result); err != nil {
		metrics.SyncsFailed.Add(1)
		o.writeSyncMeta(ctx, et, term, institution, types.SyncFailed, time.Time{}, err.Error(), attemptID)
		return nil, fmt.Errorf("%w: %v", types.ErrStore, err)
	}

	now := o.now()
	o.writeSyncMeta(ctx, et, term, institution, types.SyncSuccess, now, "", attemptID)
	o.logger.Info("catalog refresh complete", "tuple", tuple, "attemptId", attemptID, "entities", result.Len())
	return result, nil
}

func (o *Orchestrator) persist(ctx context.Context, et types.EntityType, result *collector.Result) error {
	switch et {
	case types.EntityCourses:
		return o.store.PutCourses(ctx, result.Courses)
	case types.EntitySections:
		return o.store.PutSections(ctx, result.Sections)
	case types.EntityInstructors:
		return o.store.PutInstructors(ctx, result.Instructors)
	}
	return fmt.Errorf("unknown entity type %q", et)
}

func (o *Orchestrator) writeSyncMeta(ctx context.Context, et types.EntityType, term, institution string, status types.SyncStatus, lastSync time.Time, lastError, attemptID string) {
	now := o.now()
	meta := types.SyncMetadata{
		EntityType:  et,
		Term:        term,
		Institution: institution,
		Status:      status,
		LastError:   lastError,
		AttemptID:   attemptID,
		UpdatedAt:   now,
	}
	if !lastSync.IsZero() {
		meta.LastSyncAt = lastSync
	} else if prev, err := o.store.GetSyncMetadata(ctx, et, term, institution); err == nil && prev != nil {
		// Preserve the last good sync time across failed attempts.
		meta.LastSyncAt = prev.LastSyncAt
	}
	if err := o.store.PutSyncMetadata(ctx, meta); err != nil {
		o.logger.Error("writing sync metadata failed",
			"tuple", types.SyncTuple(et, term, institution), "status", status, "error", err)
	}
}

func (o *Orchestrator) readStore(ctx context.Context, et types.EntityType, q types.Query) (*collector.Result, error) {
	result := &collector.Result{}
	var err error
	switch et {
	case types.EntityCourses:
		result.Courses, err = o.store.GetCourses(ctx, q.Term, q.Institution, q.CourseCodes)
	case types.EntitySections:
		result.Sections, err = o.store.GetSections(ctx, q.Term, q.Institution, q.CourseCodes)
	case types.EntityInstructors:
		result.Instructors, err = o.store.GetInstructors(ctx, q.Institution, q.InstructorNames)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// degraded serves whatever data exists with the degraded flag set, or fails
// with ErrDataNotFound when nothing exists. Degraded responses are cached so
// a flapping collector does not get hammered by every request.
func (o *Orchestrator) degraded(key string, result *collector.Result, lastSync time.Time, warning string) (*collector.Result, types.FetchMetadata, error) {
	if result.Len() == 0 {
		return nil, types.FetchMetadata{}, fmt.Errorf("%w: no data in any tier", types.ErrDataNotFound)
	}
	metrics.FetchesDegraded.Add(1)
	fm := fetchMeta(types.SourceStore, false, true, []string{warning}, lastSync)
	o.cache.Set(key, cached{result: result, meta: fm}, o.cacheTTL)
	return result, fm, nil
}

// filterResult narrows a full tuple refresh down to the caller's query.
func filterResult(et types.EntityType, result *collector.Result, q types.Query) *collector.Result {
	switch et {
	case types.EntityCourses:
		if len(q.CourseCodes) == 0 {
			return result
		}
		want := upperSet(q.CourseCodes)
		out := &collector.Result{}
		for _, c := range result.Courses {
			if want[strings.ToUpper(c.Code)] {
				out.Courses = append(out.Courses, c)
			}
		}
		return out
	case types.EntitySections:
		if len(q.CourseCodes) == 0 {
			return result
		}
		want := upperSet(q.CourseCodes)
		out := &collector.Result{}
		for _, s := range result.Sections {
			if want[strings.ToUpper(s.CourseCode)] {
				out.Sections = append(out.Sections, s)
			}
		}
		return out
	case types.EntityInstructors:
		if len(q.InstructorNames) == 0 {
			return result
		}
		want := upperSet(q.InstructorNames)
		out := &collector.Result{}
		for _, ins := range result.Instructors {
			if want[strings.ToUpper(ins.Name)] {
				out.Instructors = append(out.Instructors, ins)
			}
		}
		return out
	}
	return result
}

func upperSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToUpper(v)] = true
	}
	return set
}

func fetchMeta(source types.DataSource, fresh, degraded bool, warnings []string, lastSync time.Time) types.FetchMetadata {
	fm := types.FetchMetadata{
		Source:   source,
		IsFresh:  fresh,
		Degraded: degraded,
		Warnings: warnings,
	}
	if !lastSync.IsZero() {
		fm.LastSyncAt = &lastSync
	}
	return fm
}

// cacheKey builds a deterministic key from the entity type and query. Filters
// are sorted and uppercased so equivalent queries share one entry.
func cacheKey(et types.EntityType, q types.Query) string {
	parts := []string{string(et), q.Term, q.Institution}
	parts = append(parts, normalized(q.CourseCodes)...)
	parts = append(parts, normalized(q.InstructorNames)...)
	return strings.Join(parts, "|")
}

func normalized(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(strings.TrimSpace(v))
	}
	sort.Strings(out)
	return out
}
