// Package conflict detects pairwise day/time overlaps between scheduled sections.
package conflict

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coursepilot/coursepilot/pkg/types"
)

// Day is an atomic weekday token.
type Day int

// Day values, Monday through Sunday.
const (
	Monday Day = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var dayNames = [...]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func (d Day) String() string {
	if d < Monday || d > Sunday {
		return fmt.Sprintf("Day(%d)", int(d))
	}
	return dayNames[d]
}

// ParseDays decomposes a compact day string into atomic day tokens:
// "MWF" -> Mon, Wed, Fri; "TTh" -> Tue, Thu. "R" is accepted as the registrar
// encoding for Thursday, "Sa"/"Su" for the weekend, bare "S" as Saturday.
// Unrecognized characters are skipped.
func ParseDays(s string) []Day {
	var days []Day
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'M', 'm':
			days = append(days, Monday)
		case 'T', 't':
			if i+1 < len(s) && (s[i+1] == 'h' || s[i+1] == 'H') {
				days = append(days, Thursday)
				i++
			} else if i+1 < len(s) && (s[i+1] == 'u' || s[i+1] == 'U') {
				days = append(days, Tuesday)
				i++
			} else {
				days = append(days, Tuesday)
			}
		case 'W', 'w':
			days = append(days, Wednesday)
		case 'R', 'r':
			days = append(days, Thursday)
		case 'F', 'f':
			days = append(days, Friday)
		case 'S', 's':
			if i+1 < len(s) && (s[i+1] == 'u' || s[i+1] == 'U') {
				days = append(days, Sunday)
				i++
			} else if i+1 < len(s) && (s[i+1] == 'a' || s[i+1] == 'A') {
				days = append(days, Saturday)
				i++
			} else {
				days = append(days, Saturday)
			}
		}
	}
	return days
}

// ParseClock converts a 24-hour "HH:MM" string to minutes since midnight.
func ParseClock(s string) (int, error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	hours, err := strconv.Atoi(h)
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	minutes, err := strconv.Atoi(m)
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	return hours*60 + minutes, nil
}

// MeetingsOverlap reports whether two meetings share at least one atomic day
// and their time intervals overlap. Intervals are half-open: meetings that
// only touch endpoints (one ends exactly when the other starts) do not
// conflict. Malformed times never overlap.
func MeetingsOverlap(a, b types.Meeting) bool {
	if !shareDay(ParseDays(a.Days), ParseDays(b.Days)) {
		return false
	}

	startA, err := ParseClock(a.Start)
	if err != nil {
		return false
	}
	endA, err := ParseClock(a.End)
	if err != nil {
		return false
	}
	startB, err := ParseClock(b.Start)
	if err != nil {
		return false
	}
	endB, err := ParseClock(b.End)
	if err != nil {
		return false
	}

	return startA < endB && startB < endA
}

// Detect returns every pairwise time conflict in the given set of sections.
// The relation is symmetric and irreflexive: each conflicting unordered pair
// is reported exactly once and a section never conflicts with itself.
// O(n²) over the input, which is bounded by a student's course load.
func Detect(sections []types.Section) []types.TimeConflict {
	var conflicts []types.TimeConflict
	for i := 0; i < len(sections); i++ {
		for j := i + 1; j < len(sections); j++ {
			if c := sectionConflict(sections[i], sections[j]); c != nil {
				conflicts = append(conflicts, *c)
			}
		}
	}
	return conflicts
}

// SectionsConflict reports whether any meetings of a and b overlap.
func SectionsConflict(a, b types.Section) bool {
	return sectionConflict(a, b) != nil
}

func sectionConflict(a, b types.Section) *types.TimeConflict {
	for _, ma := range a.Meetings {
		for _, mb := range b.Meetings {
			if MeetingsOverlap(ma, mb) {
				return &types.TimeConflict{
					SectionA: a.ID,
					SectionB: b.ID,
					Kind:     types.ConflictTimeOverlap,
					Message: fmt.Sprintf("%s %s (%s %s-%s) overlaps %s %s (%s %s-%s)",
						a.CourseCode, a.Number, ma.Days, ma.Start, ma.End,
						b.CourseCode, b.Number, mb.Days, mb.Start, mb.End),
				}
			}
		}
	}
	return nil
}

func shareDay(a, b []Day) bool {
	for _, da := range a {
		for _, db := range b {
			if da == db {
				return true
			}
		}
	}
	return false
}
