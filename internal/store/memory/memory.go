// Package memory implements an in-memory Store for tests and local development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/coursepilot/coursepilot/internal/store"
	"github.com/coursepilot/coursepilot/pkg/types"
)

// Compile-time interface satisfaction check.
var _ store.Store = (*Store)(nil)

type lockEntry struct {
	expiresAt time.Time
}

// Store is an in-memory store.Store implementation. Safe for concurrent use.
type Store struct {
	mu          sync.Mutex
	courses     map[string]types.Course     // key: institution|term|code
	sections    map[string]types.Section    // key: id
	instructors map[string]types.Instructor // key: institution|name
	syncMeta    map[string]types.SyncMetadata
	locks       map[string]lockEntry

	// Fault injection for orchestrator tests.
	failReads  error
	failWrites error
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		courses:     make(map[string]types.Course),
		sections:    make(map[string]types.Section),
		instructors: make(map[string]types.Instructor),
		syncMeta:    make(map[string]types.SyncMetadata),
		locks:       make(map[string]lockEntry),
	}
}

// FailReads makes every read return err until called with nil. Tests only.
func (s *Store) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failReads = err
}

// FailWrites makes every write return err until called with nil. Tests only.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = err
}

func courseKey(institution, term, code string) string {
	return institution + "|" + term + "|" + code
}

func instructorKey(institution, name string) string {
	return institution + "|" + name
}

func (s *Store) PutCourses(_ context.Context, courses []types.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites != nil {
		return s.failWrites
	}
	for _, c := range courses {
		s.courses[courseKey(c.Institution, c.Term, c.Code)] = c
	}
	return nil
}

func (s *Store) GetCourses(_ context.Context, term, institution string, codes []string) ([]types.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads != nil {
		return nil, s.failReads
	}

	want := toSet(codes)
	var result []types.Course
	for _, c := range s.courses {
		if c.Term != term || c.Institution != institution {
			continue
		}
		if len(want) > 0 && !want[strings.ToUpper(c.Code)] {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (s *Store) PutSections(_ context.Context, sections []types.Section) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites != nil {
		return s.failWrites
	}
	for _, sec := range sections {
		s.sections[sec.ID] = sec
	}
	return nil
}

func (s *Store) GetSections(_ context.Context, term, institution string, courseCodes []string) ([]types.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads != nil {
		return nil, s.failReads
	}

	want := toSet(courseCodes)
	var result []types.Section
	for _, sec := range s.sections {
		if sec.Term != term || sec.Institution != institution {
			continue
		}
		if len(want) > 0 && !want[strings.ToUpper(sec.CourseCode)] {
			continue
		}
		result = append(result, sec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) PutInstructors(_ context.Context, instructors []types.Instructor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites != nil {
		return s.failWrites
	}
	for _, ins := range instructors {
		s.instructors[instructorKey(ins.Institution, ins.Name)] = ins
	}
	return nil
}

func (s *Store) GetInstructors(_ context.Context, institution string, names []string) ([]types.Instructor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads != nil {
		return nil, s.failReads
	}

	want := toSet(names)
	var result []types.Instructor
	for _, ins := range s.instructors {
		if ins.Institution != institution {
			continue
		}
		if len(want) > 0 && !want[strings.ToUpper(ins.Name)] {
			continue
		}
		result = append(result, ins)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) PutSyncMetadata(_ context.Context, meta types.SyncMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites != nil {
		return s.failWrites
	}
	s.syncMeta[types.SyncTuple(meta.EntityType, meta.Term, meta.Institution)] = meta
	return nil
}

func (s *Store) GetSyncMetadata(_ context.Context, et types.EntityType, term, institution string) (*types.SyncMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads != nil {
		return nil, s.failReads
	}
	meta, ok := s.syncMeta[types.SyncTuple(et, term, institution)]
	if !ok {
		return nil, nil
	}
	return &meta, nil
}

func (s *Store) ListSyncMetadata(_ context.Context, institution string) ([]types.SyncMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads != nil {
		return nil, s.failReads
	}
	var result []types.SyncMetadata
	for _, meta := range s.syncMeta {
		if institution != "" && meta.Institution != institution {
			continue
		}
		result = append(result, meta)
	}
	sort.Slice(result, func(i, j int) bool {
		return types.SyncTuple(result[i].EntityType, result[i].Term, result[i].Institution) <
			types.SyncTuple(result[j].EntityType, result[j].Term, result[j].Institution)
	})
	return result, nil
}

func (s *Store) AcquireLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.locks[key]; ok && time.Now().Before(entry.expiresAt) {
		return false, nil
	}
	s.locks[key] = lockEntry{expiresAt: time.Now().Add(ttl)}
	return true, nil
}

func (s *Store) ReleaseLock(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, key)
	return nil
}

func (s *Store) Start(_ context.Context) error { return nil }
func (s *Store) Stop(_ context.Context) error  { return nil }
func (s *Store) Ping(_ context.Context) error  { return nil }

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToUpper(v)] = true
	}
	return set
}
