package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursepilot/coursepilot/pkg/types"
)

func TestCoursesRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.PutCourses(ctx, []types.Course{
		{Code: "MATH200", Term: "2026FA", Institution: "state-u"},
		{Code: "CS101", Term: "2026FA", Institution: "state-u"},
		{Code: "CS101", Term: "2026SP", Institution: "state-u"},
		{Code: "CS101", Term: "2026FA", Institution: "other-u"},
	}))

	got, err := s.GetCourses(ctx, "2026FA", "state-u", nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "CS101", got[0].Code)
	assert.Equal(t, "MATH200", got[1].Code)

	filtered, err := s.GetCourses(ctx, "2026FA", "state-u", []string{"cs101"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "CS101", filtered[0].Code)
}

func TestPutCoursesUpserts(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.PutCourses(ctx, []types.Course{
		{Code: "CS101", Title: "old", Term: "2026FA", Institution: "state-u"},
	}))
	require.NoError(t, s.PutCourses(ctx, []types.Course{
		{Code: "CS101", Title: "new", Term: "2026FA", Institution: "state-u"},
	}))

	got, err := s.GetCourses(ctx, "2026FA", "state-u", nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Title)
}

func TestSectionsFilterByCourseCode(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.PutSections(ctx, []types.Section{
		{ID: "cs101-a", CourseCode: "CS101", Term: "2026FA", Institution: "state-u"},
		{ID: "cs101-b", CourseCode: "CS101", Term: "2026FA", Institution: "state-u"},
		{ID: "math200-a", CourseCode: "MATH200", Term: "2026FA", Institution: "state-u"},
	}))

	got, err := s.GetSections(ctx, "2026FA", "state-u", []string{"CS101"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "cs101-a", got[0].ID)
	assert.Equal(t, "cs101-b", got[1].ID)
}

func TestInstructorsFilterByName(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.PutInstructors(ctx, []types.Instructor{
		{Name: "Dr. Smith", Institution: "state-u", Rating: 4.5},
		{Name: "Dr. Jones", Institution: "state-u", Rating: 3.0},
		{Name: "Dr. Smith", Institution: "other-u", Rating: 2.0},
	}))

	got, err := s.GetInstructors(ctx, "state-u", []string{"dr. smith"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 4.5, got[0].Rating)

	all, err := s.GetInstructors(ctx, "state-u", nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Dr. Jones", all[0].Name)
}

func TestSyncMetadata(t *testing.T) {
	s := New()
	ctx := context.Background()

	meta, err := s.GetSyncMetadata(ctx, types.EntityCourses, "2026FA", "state-u")
	require.NoError(t, err)
	assert.Nil(t, meta)

	require.NoError(t, s.PutSyncMetadata(ctx, types.SyncMetadata{
		EntityType:  types.EntityCourses,
		Term:        "2026FA",
		Institution: "state-u",
		Status:      types.SyncSuccess,
		LastSyncAt:  time.Now(),
	}))
	require.NoError(t, s.PutSyncMetadata(ctx, types.SyncMetadata{
		EntityType:  types.EntitySections,
		Term:        "2026FA",
		Institution: "other-u",
		Status:      types.SyncFailed,
		LastError:   "collector unreachable",
	}))

	meta, err = s.GetSyncMetadata(ctx, types.EntityCourses, "2026FA", "state-u")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, types.SyncSuccess, meta.Status)

	all, err := s.ListSyncMetadata(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := s.ListSyncMetadata(ctx, "other-u")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, types.SyncFailed, scoped[0].Status)
}

func TestLocks(t *testing.T) {
	s := New()
	ctx := context.Background()

	acquired, err := s.AcquireLock(ctx, "refresh:courses:2026FA:state-u", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)

	again, err := s.AcquireLock(ctx, "refresh:courses:2026FA:state-u", time.Minute)
	require.NoError(t, err)
	assert.False(t, again, "held lock should not be reacquired")

	require.NoError(t, s.ReleaseLock(ctx, "refresh:courses:2026FA:state-u"))

	after, err := s.AcquireLock(ctx, "refresh:courses:2026FA:state-u", time.Minute)
	require.NoError(t, err)
	assert.True(t, after, "released lock should be reacquirable")
}

func TestExpiredLockIsStolen(t *testing.T) {
	s := New()
	ctx := context.Background()

	acquired, err := s.AcquireLock(ctx, "stale-lock", -time.Second)
	require.NoError(t, err)
	require.True(t, acquired)

	stolen, err := s.AcquireLock(ctx, "stale-lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, stolen, "expired lock should be stolen")
}

func TestFaultInjection(t *testing.T) {
	s := New()
	ctx := context.Background()

	readErr := errors.New("read failure")
	s.FailReads(readErr)
	_, err := s.GetCourses(ctx, "2026FA", "state-u", nil)
	assert.ErrorIs(t, err, readErr)
	s.FailReads(nil)

	writeErr := errors.New("write failure")
	s.FailWrites(writeErr)
	err = s.PutCourses(ctx, []types.Course{{Code: "CS101", Term: "2026FA", Institution: "state-u"}})
	assert.ErrorIs(t, err, writeErr)
	s.FailWrites(nil)

	require.NoError(t, s.PutCourses(ctx, []types.Course{{Code: "CS101", Term: "2026FA", Institution: "state-u"}}))
	got, err := s.GetCourses(ctx, "2026FA", "state-u", nil)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
