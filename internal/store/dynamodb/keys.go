package dynamodb

import (
	"fmt"
	"strings"
)

// Single-table key layout. Catalog entities are partitioned by institution
// (and term where it applies) so a tuple's rows come back in one Query.
const (
	pkCoursesPrefix     = "COURSES#"
	pkSectionsPrefix    = "SECTIONS#"
	pkInstructorsPrefix = "INSTRUCTORS#"
	pkSyncPrefix        = "SYNC#"
	pkLockPrefix        = "LOCK#"

	skCoursePrefix     = "COURSE#"
	skSectionPrefix    = "SECTION#"
	skInstructorPrefix = "INSTRUCTOR#"
	skSyncPrefix       = "SYNC#"
	skLock             = "LOCK"
)

func coursesPK(institution, term string) string {
	return fmt.Sprintf("%s%s#%s", pkCoursesPrefix, institution, term)
}

func courseSK(code string) string {
	return skCoursePrefix + strings.ToUpper(code)
}

func sectionsPK(institution, term string) string {
	return fmt.Sprintf("%s%s#%s", pkSectionsPrefix, institution, term)
}

func sectionSK(id string) string {
	return skSectionPrefix + id
}

func instructorsPK(institution string) string {
	return pkInstructorsPrefix + institution
}

func instructorSK(name string) string {
	return skInstructorPrefix + strings.ToUpper(name)
}

func syncPK(institution string) string {
	return pkSyncPrefix + institution
}

func syncSK(entityType, term string) string {
	return fmt.Sprintf("%s%s#%s", skSyncPrefix, entityType, term)
}

func lockPK(key string) string {
	return pkLockPrefix + key
}
