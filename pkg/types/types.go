// Package types defines the public domain types for the coursepilot catalog and scheduling core.
package types

import "time"

// EntityType identifies a class of catalog entity managed by the retrieval layer.
type EntityType string

// EntityType values enumerate the catalog entity classes.
const (
	EntityCourses     EntityType = "courses"
	EntitySections    EntityType = "sections"
	EntityInstructors EntityType = "instructors"
)

// ValidEntityType reports whether et names a known entity type.
func ValidEntityType(et EntityType) bool {
	switch et {
	case EntityCourses, EntitySections, EntityInstructors:
		return true
	}
	return false
}

// SyncStatus represents the state of a catalog refresh attempt.
type SyncStatus string

// SyncStatus values enumerate the refresh attempt states.
const (
	SyncSuccess    SyncStatus = "SUCCESS"
	SyncFailed     SyncStatus = "FAILED"
	SyncInProgress SyncStatus = "IN_PROGRESS"
)

// DataSource identifies which tier of the fallback chain served a response.
type DataSource string

// DataSource values enumerate the retrieval tiers.
const (
	SourceCache     DataSource = "cache"
	SourceStore     DataSource = "store"
	SourceCollector DataSource = "collector"
)

// Meeting is a recurring weekly meeting block for a section.
// Days is a compact day string ("MWF", "TTh"); Start and End are 24-hour "HH:MM".
type Meeting struct {
	Days  string `yaml:"days" json:"days"`
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// Course is a catalog course offering for a term. Natural key:
// (code, term, institution).
type Course struct {
	Code        string    `yaml:"code" json:"code"`
	Title       string    `yaml:"title" json:"title"`
	Term        string    `yaml:"term" json:"term"`
	Institution string    `yaml:"institution" json:"institution"`
	Credits     float64   `yaml:"credits" json:"credits"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	CollectedAt time.Time `yaml:"collectedAt,omitempty" json:"collectedAt,omitempty"`
}

// Section is a concrete scheduled offering of a course. Natural key: ID.
type Section struct {
	ID          string    `yaml:"id" json:"id"`
	CourseCode  string    `yaml:"courseCode" json:"courseCode"`
	Term        string    `yaml:"term" json:"term"`
	Institution string    `yaml:"institution" json:"institution"`
	Number      string    `yaml:"number,omitempty" json:"number,omitempty"`
	Instructor  string    `yaml:"instructor,omitempty" json:"instructor,omitempty"`
	Meetings    []Meeting `yaml:"meetings" json:"meetings"`
	Location    string    `yaml:"location,omitempty" json:"location,omitempty"`
	Credits     float64   `yaml:"credits,omitempty" json:"credits,omitempty"`
	SeatsOpen   int       `yaml:"seatsOpen,omitempty" json:"seatsOpen,omitempty"`
	CollectedAt time.Time `yaml:"collectedAt,omitempty" json:"collectedAt,omitempty"`
}

// Instructor carries the composite rating profile for an instructor.
// Natural key: (name, institution). Rating is on a 0-5 scale.
type Instructor struct {
	Name           string    `yaml:"name" json:"name"`
	Institution    string    `yaml:"institution" json:"institution"`
	Rating         float64   `yaml:"rating" json:"rating"`
	RatingCount    int       `yaml:"ratingCount,omitempty" json:"ratingCount,omitempty"`
	Difficulty     float64   `yaml:"difficulty,omitempty" json:"difficulty,omitempty"`
	WouldTakeAgain float64   `yaml:"wouldTakeAgain,omitempty" json:"wouldTakeAgain,omitempty"`
	CollectedAt    time.Time `yaml:"collectedAt,omitempty" json:"collectedAt,omitempty"`
}

// SyncMetadata tracks the refresh history for one (entityType, term, institution)
// tuple. At most one attempt per tuple is IN_PROGRESS at a time; the orchestrator
// serializes attempts, the store only records them.
type SyncMetadata struct {
	EntityType  EntityType `json:"entityType"`
	Term        string     `json:"term"`
	Institution string     `json:"institution"`
	Status      SyncStatus `json:"status"`
	LastSyncAt  time.Time  `json:"lastSyncAt"`
	LastError   string     `json:"lastError,omitempty"`
	AttemptID   string     `json:"attemptId,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// SyncTuple returns the canonical key for a sync metadata tuple.
func SyncTuple(et EntityType, term, institution string) string {
	return string(et) + ":" + term + ":" + institution
}

// Query selects catalog entities within a term and institution. CourseCodes
// narrows courses and sections; InstructorNames narrows instructors. Empty
// filters select everything for the tuple.
type Query struct {
	Term            string   `json:"term"`
	Institution     string   `json:"institution"`
	CourseCodes     []string `json:"courseCodes,omitempty"`
	InstructorNames []string `json:"instructorNames,omitempty"`
}

// FetchMetadata discloses the provenance and quality of a retrieval response.
type FetchMetadata struct {
	Source     DataSource `json:"source"`
	IsFresh    bool       `json:"isFresh"`
	Degraded   bool       `json:"degraded"`
	Warnings   []string   `json:"warnings,omitempty"`
	LastSyncAt *time.Time `json:"lastSyncAt,omitempty"`
}

// ScheduleConstraints is the user-supplied filter and preference bundle for
// schedule optimization. MinInstructorRating and the time window are hard
// constraints; preferred days and gap avoidance only influence scoring.
type ScheduleConstraints struct {
	PreferredDays       []string `json:"preferredDays,omitempty"`
	EarliestStart       string   `json:"earliestStart,omitempty"` // "HH:MM"
	LatestEnd           string   `json:"latestEnd,omitempty"`     // "HH:MM"
	MinInstructorRating float64  `json:"minInstructorRating,omitempty"`
	MinCredits          float64  `json:"minCredits,omitempty"`
	MaxCredits          float64  `json:"maxCredits,omitempty"`
	AvoidGaps           bool     `json:"avoidGaps,omitempty"`
}

// SubScores breaks an overall schedule score into its weighted factors.
// Each factor is normalized to [0, 1].
type SubScores struct {
	Preference        float64 `json:"preference"`
	InstructorQuality float64 `json:"instructorQuality"`
	TimeConvenience   float64 `json:"timeConvenience"`
}

// OptimizedSchedule is one ranked, conflict-free schedule candidate. It is a
// derived, disposable result and is never persisted.
type OptimizedSchedule struct {
	Sections     []Section      `json:"sections"`
	OverallScore float64        `json:"overallScore"`
	SubScores    SubScores      `json:"subScores"`
	Conflicts    []TimeConflict `json:"conflicts,omitempty"`
	Reasoning    string         `json:"reasoning,omitempty"`
}

// TimeConflict records a pairwise day/time overlap between two sections.
// The relation is symmetric and never self-referential.
type TimeConflict struct {
	SectionA string `json:"sectionA"`
	SectionB string `json:"sectionB"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}

// ConflictTimeOverlap is the kind for meeting-time overlaps.
const ConflictTimeOverlap = "time-overlap"
