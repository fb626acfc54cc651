package optimizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/coursepilot/coursepilot/internal/conflict"
	"github.com/coursepilot/coursepilot/pkg/types"
)

// Weights are the scoring factor weights. They are normalized to sum to 1.
type Weights struct {
	Preference        float64
	InstructorQuality float64
	TimeConvenience   float64
}

// DefaultWeights returns the documented default weighting.
func DefaultWeights() Weights {
	return Weights{Preference: 0.4, InstructorQuality: 0.3, TimeConvenience: 0.3}
}

func (w Weights) normalized() Weights {
	sum := w.Preference + w.InstructorQuality + w.TimeConvenience
	if sum <= 0 {
		return DefaultWeights()
	}
	return Weights{
		Preference:        w.Preference / sum,
		InstructorQuality: w.InstructorQuality / sum,
		TimeConvenience:   w.TimeConvenience / sum,
	}
}

// neutralScore is used for factors with no data to judge: an unknown
// instructor is neither a reward nor a penalty.
const neutralScore = 0.5

// score computes the weighted sub-scores for one conflict-free candidate.
// Every factor is normalized to [0, 1].
func score(sections []types.Section, c types.ScheduleConstraints, ratings map[string]types.Instructor, w Weights) types.OptimizedSchedule {
	sub := types.SubScores{
		Preference:        preferenceScore(sections, c),
		InstructorQuality: instructorScore(sections, ratings),
		TimeConvenience:   convenienceScore(sections, c),
	}
	overall := w.Preference*sub.Preference +
		w.InstructorQuality*sub.InstructorQuality +
		w.TimeConvenience*sub.TimeConvenience

	return types.OptimizedSchedule{
		Sections:     sections,
		OverallScore: overall,
		SubScores:    sub,
		Reasoning: fmt.Sprintf("preference %.2f, instructor quality %.2f, time convenience %.2f",
			sub.Preference, sub.InstructorQuality, sub.TimeConvenience),
	}
}

// preferenceScore rewards meetings on preferred days and, when gap avoidance
// is requested, penalizes idle time between classes on the same day.
func preferenceScore(sections []types.Section, c types.ScheduleConstraints) float64 {
	dayScore := 1.0
	if len(c.PreferredDays) > 0 {
		preferred := make(map[conflict.Day]bool)
		for _, d := range c.PreferredDays {
			for _, day := range conflict.ParseDays(d) {
				preferred[day] = true
			}
		}

		matched, total := 0, 0
		for _, sec := range sections {
			for _, m := range sec.Meetings {
				for _, day := range conflict.ParseDays(m.Days) {
					total++
					if preferred[day] {
						matched++
					}
				}
			}
		}
		if total > 0 {
			dayScore = float64(matched) / float64(total)
		}
	}

	if !c.AvoidGaps {
		return dayScore
	}
	return clamp(dayScore - gapPenalty(sections))
}

// gapPenalty measures idle time between consecutive meetings per weekday,
// normalized so a cumulative 4h of gaps costs the full preference score.
func gapPenalty(sections []types.Section) float64 {
	type interval struct{ start, end int }
	byDay := make(map[conflict.Day][]interval)
	for _, sec := range sections {
		for _, m := range sec.Meetings {
			start, err := conflict.ParseClock(m.Start)
			if err != nil {
				continue
			}
			end, err := conflict.ParseClock(m.End)
			if err != nil {
				continue
			}
			for _, day := range conflict.ParseDays(m.Days) {
				byDay[day] = append(byDay[day], interval{start, end})
			}
		}
	}

	gapMinutes := 0
	for _, intervals := range byDay {
		sort.Slice(intervals, func(i, j int) bool { return intervals[i].start < intervals[j].start })
		for i := 1; i < len(intervals); i++ {
			if gap := intervals[i].start - intervals[i-1].end; gap > 0 {
				gapMinutes += gap
			}
		}
	}
	return clamp(float64(gapMinutes) / 240.0)
}

// instructorScore is the mean composite rating across sections, on [0, 1].
// Sections without a known rating contribute a neutral score.
func instructorScore(sections []types.Section, ratings map[string]types.Instructor) float64 {
	if len(sections) == 0 {
		return neutralScore
	}
	total := 0.0
	for _, sec := range sections {
		if ins, ok := ratings[strings.ToUpper(sec.Instructor)]; ok && ins.Rating > 0 {
			total += clamp(ins.Rating / 5.0)
		} else {
			total += neutralScore
		}
	}
	return total / float64(len(sections))
}

// convenienceScore rewards schedules that hug the requested time window: the
// less slack between the window bounds and the actual meetings, the higher
// the score. Without bounds every candidate is equally convenient.
func convenienceScore(sections []types.Section, c types.ScheduleConstraints) float64 {
	if c.EarliestStart == "" && c.LatestEnd == "" {
		return 1.0
	}

	earliest := 8 * 60
	latest := 18 * 60
	if c.EarliestStart != "" {
		if v, err := conflict.ParseClock(c.EarliestStart); err == nil {
			earliest = v
		}
	}
	if c.LatestEnd != "" {
		if v, err := conflict.ParseClock(c.LatestEnd); err == nil {
			latest = v
		}
	}
	window := latest - earliest
	if window <= 0 {
		return neutralScore
	}

	slack, meetings := 0, 0
	for _, sec := range sections {
		for _, m := range sec.Meetings {
			start, err := conflict.ParseClock(m.Start)
			if err != nil {
				continue
			}
			end, err := conflict.ParseClock(m.End)
			if err != nil {
				continue
			}
			meetings++
			if start > earliest {
				slack += start - earliest
			}
			if end < latest {
				slack += latest - end
			}
		}
	}
	if meetings == 0 {
		return neutralScore
	}
	avgSlack := float64(slack) / float64(meetings)
	return clamp(1.0 - avgSlack/float64(window))
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
