// Package optimizer builds ranked, conflict-free schedules from candidate
// sections via backtracking search with multi-factor scoring.
package optimizer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/coursepilot/coursepilot/internal/conflict"
	"github.com/coursepilot/coursepilot/internal/metrics"
	"github.com/coursepilot/coursepilot/pkg/types"
)

// DefaultMaxResults bounds the number of returned schedules when the request
// leaves it unset.
const DefaultMaxResults = 5

// Source supplies sections and instructor rating profiles. Implemented by the
// retrieval orchestrator; tests substitute a fixture.
type Source interface {
	Sections(ctx context.Context, term, institution string, courseCodes []string, autoPopulate bool) ([]types.Section, types.FetchMetadata, error)
	Instructors(ctx context.Context, institution string, names []string, autoPopulate bool) ([]types.Instructor, types.FetchMetadata, error)
}

// Request is one schedule optimization call.
type Request struct {
	RequiredCourses []string                  `json:"requiredCourses"`
	Term            string                    `json:"term"`
	Institution     string                    `json:"institution"`
	Constraints     types.ScheduleConstraints `json:"constraints"`
	MaxResults      int                       `json:"maxResults,omitempty"`
	AutoPopulate    bool                      `json:"autoPopulate,omitempty"`
}

// Result carries the ranked schedules plus retrieval provenance. An infeasible
// request yields zero schedules and a populated Reasoning, never an error.
type Result struct {
	Schedules []types.OptimizedSchedule `json:"schedules"`
	Count     int                       `json:"count"`
	Reasoning string                    `json:"reasoning,omitempty"`
	Metadata  types.FetchMetadata       `json:"metadata"`
}

// Optimizer runs the constraint filtering, backtracking search, and scoring
// pipeline. Pure and CPU-bound once the source data is in hand; no shared
// mutable state, so a single instance serves concurrent requests.
type Optimizer struct {
	source  Source
	weights Weights
	logger  *slog.Logger
}

// New creates an Optimizer. Zero-value weights fall back to the defaults.
func New(source Source, weights Weights) *Optimizer {
	return &Optimizer{
		source:  source,
		weights: weights.normalized(),
		logger:  slog.Default(),
	}
}

// SetLogger overrides the default logger.
func (o *Optimizer) SetLogger(l *slog.Logger) {
	if l != nil {
		o.logger = l
	}
}

// Optimize returns up to MaxResults ranked, conflict-free schedules covering
// every required course.
func (o *Optimizer) Optimize(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	metrics.OptimizationsTotal.Add(1)

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	sections, fm, err := o.source.Sections(ctx, req.Term, req.Institution, req.RequiredCourses, req.AutoPopulate)
	if err != nil {
		return nil, err
	}

	ratings := o.lookupRatings(ctx, req.Institution, sections, req.AutoPopulate)

	byCourse, reason := groupAndFilter(sections, req.RequiredCourses, req.Constraints, ratings)
	if reason != "" {
		metrics.OptimizationsEmpty.Add(1)
		return &Result{Schedules: []types.OptimizedSchedule{}, Reasoning: reason, Metadata: fm}, nil
	}

	candidates := search(byCourse)
	if len(candidates) == 0 {
		metrics.OptimizationsEmpty.Add(1)
		return &Result{
			Schedules: []types.OptimizedSchedule{},
			Reasoning: "every combination of the remaining sections has time conflicts",
			Metadata:  fm,
		}, nil
	}

	candidates, creditReason := filterByCredits(candidates, req.Constraints)
	if len(candidates) == 0 {
		metrics.OptimizationsEmpty.Add(1)
		return &Result{Schedules: []types.OptimizedSchedule{}, Reasoning: creditReason, Metadata: fm}, nil
	}

	scored := make([]types.OptimizedSchedule, 0, len(candidates))
	for _, candidate := range candidates {
		scored = append(scored, score(candidate, req.Constraints, ratings, o.weights))
	}
	ranked := rank(scored)
	if len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}

	o.logger.Info("optimization complete",
		"courses", len(req.RequiredCourses), "candidates", len(candidates), "returned", len(ranked))
	return &Result{Schedules: ranked, Count: len(ranked), Metadata: fm}, nil
}

func validate(req Request) error {
	if len(req.RequiredCourses) == 0 {
		return fmt.Errorf("%w: at least one required course", types.ErrValidation)
	}
	if req.Term == "" {
		return fmt.Errorf("%w: term is required", types.ErrValidation)
	}
	if req.Institution == "" {
		return fmt.Errorf("%w: institution is required", types.ErrValidation)
	}

	c := req.Constraints
	var earliest, latest int
	var err error
	if c.EarliestStart != "" {
		if earliest, err = conflict.ParseClock(c.EarliestStart); err != nil {
			return fmt.Errorf("%w: earliestStart: %v", types.ErrValidation, err)
		}
	}
	if c.LatestEnd != "" {
		if latest, err = conflict.ParseClock(c.LatestEnd); err != nil {
			return fmt.Errorf("%w: latestEnd: %v", types.ErrValidation, err)
		}
	}
	if c.EarliestStart != "" && c.LatestEnd != "" && earliest >= latest {
		return fmt.Errorf("%w: earliestStart must be before latestEnd", types.ErrValidation)
	}
	if c.MinInstructorRating < 0 || c.MinInstructorRating > 5 {
		return fmt.Errorf("%w: minInstructorRating must be in [0, 5]", types.ErrValidation)
	}
	if c.MinCredits < 0 || c.MaxCredits < 0 {
		return fmt.Errorf("%w: credit bounds must be non-negative", types.ErrValidation)
	}
	if c.MaxCredits > 0 && c.MinCredits > c.MaxCredits {
		return fmt.Errorf("%w: minCredits must not exceed maxCredits", types.ErrValidation)
	}
	return nil
}

// lookupRatings fetches rating profiles for the instructors appearing in the
// candidate sections. A rating lookup failure degrades scoring, it never fails
// the optimization.
func (o *Optimizer) lookupRatings(ctx context.Context, institution string, sections []types.Section, autoPopulate bool) map[string]types.Instructor {
	nameSet := make(map[string]bool)
	var names []string
	for _, sec := range sections {
		if sec.Instructor == "" {
			continue
		}
		key := strings.ToUpper(sec.Instructor)
		if !nameSet[key] {
			nameSet[key] = true
			names = append(names, sec.Instructor)
		}
	}
	if len(names) == 0 {
		return nil
	}

	instructors, _, err := o.source.Instructors(ctx, institution, names, autoPopulate)
	if err != nil {
		o.logger.Warn("instructor rating lookup failed, scoring without ratings", "error", err)
		return nil
	}

	ratings := make(map[string]types.Instructor, len(instructors))
	for _, ins := range instructors {
		ratings[strings.ToUpper(ins.Name)] = ins
	}
	return ratings
}

// groupAndFilter buckets sections by required course and drops sections that
// violate the hard constraints. A non-empty reason means the request is
// infeasible before any search happens.
func groupAndFilter(sections []types.Section, requiredCourses []string, c types.ScheduleConstraints, ratings map[string]types.Instructor) ([][]types.Section, string) {
	byCode := make(map[string][]types.Section)
	for _, sec := range sections {
		code := strings.ToUpper(sec.CourseCode)
		byCode[code] = append(byCode[code], sec)
	}

	groups := make([][]types.Section, 0, len(requiredCourses))
	for _, course := range requiredCourses {
		code := strings.ToUpper(course)
		all := byCode[code]
		if len(all) == 0 {
			return nil, fmt.Sprintf("no sections found for course %s", course)
		}

		var kept []types.Section
		for _, sec := range all {
			if passesHardConstraints(sec, c, ratings) {
				kept = append(kept, sec)
			}
		}
		if len(kept) == 0 {
			return nil, fmt.Sprintf("all sections of course %s violate the hard constraints", course)
		}
		groups = append(groups, kept)
	}
	return groups, ""
}

// passesHardConstraints applies the non-negotiable filters: instructor rating
// floor and the daily time window. Sections with an unknown instructor rating
// pass the floor; absence of data is not a violation.
func passesHardConstraints(sec types.Section, c types.ScheduleConstraints, ratings map[string]types.Instructor) bool {
	if c.MinInstructorRating > 0 {
		if ins, ok := ratings[strings.ToUpper(sec.Instructor)]; ok && ins.Rating < c.MinInstructorRating {
			return false
		}
	}

	if c.EarliestStart != "" {
		earliest, err := conflict.ParseClock(c.EarliestStart)
		if err == nil {
			for _, m := range sec.Meetings {
				start, err := conflict.ParseClock(m.Start)
				if err != nil || start < earliest {
					return false
				}
			}
		}
	}
	if c.LatestEnd != "" {
		latest, err := conflict.ParseClock(c.LatestEnd)
		if err == nil {
			for _, m := range sec.Meetings {
				end, err := conflict.ParseClock(m.End)
				if err != nil || end > latest {
					return false
				}
			}
		}
	}
	return true
}

// search enumerates conflict-free assignments of one section per course via
// backtracking. A section conflicting with any already-chosen section prunes
// that whole subtree, so no conflicting complete candidate is ever built.
// Courses with the fewest sections are assigned first to fail fast.
func search(groups [][]types.Section) [][]types.Section {
	ordered := make([][]types.Section, len(groups))
	copy(ordered, groups)
	sort.SliceStable(ordered, func(i, j int) bool { return len(ordered[i]) < len(ordered[j]) })

	var results [][]types.Section
	chosen := make([]types.Section, 0, len(ordered))

	var backtrack func(depth int)
	backtrack = func(depth int) {
		if depth == len(ordered) {
			complete := make([]types.Section, len(chosen))
			copy(complete, chosen)
			results = append(results, complete)
			return
		}
		for _, sec := range ordered[depth] {
			if conflictsWithAny(sec, chosen) {
				continue
			}
			chosen = append(chosen, sec)
			backtrack(depth + 1)
			chosen = chosen[:len(chosen)-1]
		}
	}
	backtrack(0)
	return results
}

// filterByCredits drops complete assignments whose total credit load falls
// outside the requested bounds. A bound at zero is unset. Returns a reasoning
// when nothing survives.
func filterByCredits(candidates [][]types.Section, c types.ScheduleConstraints) ([][]types.Section, string) {
	if c.MinCredits <= 0 && c.MaxCredits <= 0 {
		return candidates, ""
	}
	var kept [][]types.Section
	for _, candidate := range candidates {
		total := totalCredits(candidate)
		if c.MinCredits > 0 && total < c.MinCredits {
			continue
		}
		if c.MaxCredits > 0 && total > c.MaxCredits {
			continue
		}
		kept = append(kept, candidate)
	}
	if len(kept) == 0 {
		return nil, "every conflict-free combination falls outside the requested credit bounds"
	}
	return kept, ""
}

func totalCredits(sections []types.Section) float64 {
	total := 0.0
	for _, sec := range sections {
		total += sec.Credits
	}
	return total
}

func conflictsWithAny(sec types.Section, chosen []types.Section) bool {
	for _, other := range chosen {
		if conflict.SectionsConflict(sec, other) {
			return true
		}
	}
	return false
}

// rank orders schedules by overall score descending, breaking ties first by
// instructor quality, then by earlier aggregate start time. Candidates with
// identical section sets collapse to one.
func rank(schedules []types.OptimizedSchedule) []types.OptimizedSchedule {
	seen := make(map[string]bool, len(schedules))
	deduped := make([]types.OptimizedSchedule, 0, len(schedules))
	for _, s := range schedules {
		key := sectionSetKey(s.Sections)
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, s)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		a, b := deduped[i], deduped[j]
		if a.OverallScore != b.OverallScore {
			return a.OverallScore > b.OverallScore
		}
		if a.SubScores.InstructorQuality != b.SubScores.InstructorQuality {
			return a.SubScores.InstructorQuality > b.SubScores.InstructorQuality
		}
		return aggregateStart(a.Sections) < aggregateStart(b.Sections)
	})
	return deduped
}

func sectionSetKey(sections []types.Section) string {
	ids := make([]string, len(sections))
	for i, sec := range sections {
		ids[i] = sec.ID
	}
	sort.Strings(ids)
	return strings.Join(ids, "|")
}

// aggregateStart sums the start minutes of every meeting; smaller means the
// schedule leans earlier in the day.
func aggregateStart(sections []types.Section) int {
	total := 0
	for _, sec := range sections {
		for _, m := range sec.Meetings {
			if start, err := conflict.ParseClock(m.Start); err == nil {
				total += start
			}
		}
	}
	return total
}
