package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/coursepilot/coursepilot/pkg/types"
)

func (s *Store) coursesKey(institution, term string) string {
	return s.prefix + "courses:" + institution + ":" + term
}

func (s *Store) sectionsKey(institution, term string) string {
	return s.prefix + "sections:" + institution + ":" + term
}

func (s *Store) instructorsKey(institution string) string {
	return s.prefix + "instructors:" + institution
}

// PutCourses merges courses into the per-tuple snapshot documents, keyed by
// course code.
func (s *Store) PutCourses(ctx context.Context, courses []types.Course) error {
	byTuple := map[[2]string][]types.Course{}
	for _, c := range courses {
		k := [2]string{c.Institution, c.Term}
		byTuple[k] = append(byTuple[k], c)
	}

	for tuple, batch := range byTuple {
		key := s.coursesKey(tuple[0], tuple[1])
		existing := map[string]types.Course{}
		if err := s.loadDoc(ctx, key, &existing); err != nil {
			return err
		}
		for _, c := range batch {
			existing[strings.ToUpper(c.Code)] = c
		}
		if err := s.saveDoc(ctx, key, existing); err != nil {
			return err
		}
	}
	return nil
}

// GetCourses returns courses for the tuple, optionally filtered by code.
func (s *Store) GetCourses(ctx context.Context, term, institution string, codes []string) ([]types.Course, error) {
	doc := map[string]types.Course{}
	if err := s.loadDoc(ctx, s.coursesKey(institution, term), &doc); err != nil {
		return nil, err
	}

	want := toSet(codes)
	var result []types.Course
	for code, c := range doc {
		if len(want) > 0 && !want[code] {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

// PutSections merges sections into the per-tuple snapshot documents, keyed by
// section ID.
func (s *Store) PutSections(ctx context.Context, sections []types.Section) error {
	byTuple := map[[2]string][]types.Section{}
	for _, sec := range sections {
		k := [2]string{sec.Institution, sec.Term}
		byTuple[k] = append(byTuple[k], sec)
	}

	for tuple, batch := range byTuple {
		key := s.sectionsKey(tuple[0], tuple[1])
		existing := map[string]types.Section{}
		if err := s.loadDoc(ctx, key, &existing); err != nil {
			return err
		}
		for _, sec := range batch {
			existing[sec.ID] = sec
		}
		if err := s.saveDoc(ctx, key, existing); err != nil {
			return err
		}
	}
	return nil
}

// GetSections returns sections for the tuple, optionally filtered by course code.
func (s *Store) GetSections(ctx context.Context, term, institution string, courseCodes []string) ([]types.Section, error) {
	doc := map[string]types.Section{}
	if err := s.loadDoc(ctx, s.sectionsKey(institution, term), &doc); err != nil {
		return nil, err
	}

	want := toSet(courseCodes)
	var result []types.Section
	for _, sec := range doc {
		if len(want) > 0 && !want[strings.ToUpper(sec.CourseCode)] {
			continue
		}
		result = append(result, sec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// PutInstructors merges instructors into the per-institution document, keyed
// by name.
func (s *Store) PutInstructors(ctx context.Context, instructors []types.Instructor) error {
	byInst := map[string][]types.Instructor{}
	for _, ins := range instructors {
		byInst[ins.Institution] = append(byInst[ins.Institution], ins)
	}

	for institution, batch := range byInst {
		key := s.instructorsKey(institution)
		existing := map[string]types.Instructor{}
		if err := s.loadDoc(ctx, key, &existing); err != nil {
			return err
		}
		for _, ins := range batch {
			existing[strings.ToUpper(ins.Name)] = ins
		}
		if err := s.saveDoc(ctx, key, existing); err != nil {
			return err
		}
	}
	return nil
}

// GetInstructors returns instructors for the institution, optionally filtered
// by name.
func (s *Store) GetInstructors(ctx context.Context, institution string, names []string) ([]types.Instructor, error) {
	doc := map[string]types.Instructor{}
	if err := s.loadDoc(ctx, s.instructorsKey(institution), &doc); err != nil {
		return nil, err
	}

	want := toSet(names)
	var result []types.Instructor
	for name, ins := range doc {
		if len(want) > 0 && !want[name] {
			continue
		}
		result = append(result, ins)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) loadDoc(ctx context.Context, key string, out interface{}) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("redis decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) saveDoc(ctx context.Context, key string, doc interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("redis encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

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
