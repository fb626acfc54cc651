package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/coursepilot/coursepilot/pkg/types"
)

// GetCourses returns courses for the tuple, optionally filtered by code.
func (s *Store) GetCourses(ctx context.Context, term, institution string, codes []string) ([]types.Course, error) {
	query := `
		SELECT code, term, institution, title, credits, COALESCE(description, ''), collected_at
		FROM courses
		WHERE term = $1 AND institution = $2`
	args := []interface{}{term, institution}
	if len(codes) > 0 {
		query += ` AND UPPER(code) = ANY($3)`
		args = append(args, upperAll(codes))
	}
	query += ` ORDER BY code`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres get courses: %w", err)
	}
	defer rows.Close()

	var result []types.Course
	for rows.Next() {
		var c types.Course
		if err := rows.Scan(&c.Code, &c.Term, &c.Institution, &c.Title, &c.Credits,
			&c.Description, &c.CollectedAt); err != nil {
			return nil, fmt.Errorf("postgres scan course: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// GetSections returns sections for the tuple, optionally filtered by course code.
func (s *Store) GetSections(ctx context.Context, term, institution string, courseCodes []string) ([]types.Section, error) {
	query := `
		SELECT id, course_code, term, institution, COALESCE(number, ''), COALESCE(instructor, ''),
			meetings, COALESCE(location, ''), credits, seats_open, collected_at
		FROM sections
		WHERE term = $1 AND institution = $2`
	args := []interface{}{term, institution}
	if len(courseCodes) > 0 {
		query += ` AND UPPER(course_code) = ANY($3)`
		args = append(args, upperAll(courseCodes))
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres get sections: %w", err)
	}
	defer rows.Close()

	var result []types.Section
	for rows.Next() {
		var sec types.Section
		var meetings []byte
		if err := rows.Scan(&sec.ID, &sec.CourseCode, &sec.Term, &sec.Institution, &sec.Number,
			&sec.Instructor, &meetings, &sec.Location, &sec.Credits, &sec.SeatsOpen,
			&sec.CollectedAt); err != nil {
			return nil, fmt.Errorf("postgres scan section: %w", err)
		}
		if err := json.Unmarshal(meetings, &sec.Meetings); err != nil {
			return nil, fmt.Errorf("postgres decode meetings for %s: %w", sec.ID, err)
		}
		result = append(result, sec)
	}
	return result, rows.Err()
}

// GetInstructors returns instructors for the institution, optionally filtered
// by name.
func (s *Store) GetInstructors(ctx context.Context, institution string, names []string) ([]types.Instructor, error) {
	query := `
		SELECT name, institution, rating, rating_count, difficulty, would_take_again, collected_at
		FROM instructors
		WHERE institution = $1`
	args := []interface{}{institution}
	if len(names) > 0 {
		query += ` AND UPPER(name) = ANY($2)`
		args = append(args, upperAll(names))
	}
	query += ` ORDER BY name`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres get instructors: %w", err)
	}
	defer rows.Close()

	var result []types.Instructor
	for rows.Next() {
		var ins types.Instructor
		if err := rows.Scan(&ins.Name, &ins.Institution, &ins.Rating, &ins.RatingCount,
			&ins.Difficulty, &ins.WouldTakeAgain, &ins.CollectedAt); err != nil {
			return nil, fmt.Errorf("postgres scan instructor: %w", err)
		}
		result = append(result, ins)
	}
	return result, rows.Err()
}

// GetSyncMetadata returns the sync row for a tuple, or nil if never synced.
func (s *Store) GetSyncMetadata(ctx context.Context, et types.EntityType, term, institution string) (*types.SyncMetadata, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT entity_type, term, institution, status, last_sync_at,
			COALESCE(last_error, ''), COALESCE(attempt_id, ''), updated_at
		FROM sync_metadata
		WHERE entity_type = $1 AND term = $2 AND institution = $3
	`, string(et), term, institution)

	meta, err := scanSyncMetadata(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres get sync metadata: %w", err)
	}
	return meta, nil
}

// ListSyncMetadata returns sync rows for an institution, or all rows when
// institution is empty.
func (s *Store) ListSyncMetadata(ctx context.Context, institution string) ([]types.SyncMetadata, error) {
	query := `
		SELECT entity_type, term, institution, status, last_sync_at,
			COALESCE(last_error, ''), COALESCE(attempt_id, ''), updated_at
		FROM sync_metadata`
	var args []interface{}
	if institution != "" {
		query += ` WHERE institution = $1`
		args = append(args, institution)
	}
	query += ` ORDER BY entity_type, term, institution`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres list sync metadata: %w", err)
	}
	defer rows.Close()

	var result []types.SyncMetadata
	for rows.Next() {
		meta, err := scanSyncMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres scan sync metadata: %w", err)
		}
		result = append(result, *meta)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSyncMetadata(row rowScanner) (*types.SyncMetadata, error) {
	var meta types.SyncMetadata
	var et, status string
	var lastSync *time.Time
	if err := row.Scan(&et, &meta.Term, &meta.Institution, &status, &lastSync,
		&meta.LastError, &meta.AttemptID, &meta.UpdatedAt); err != nil {
		return nil, err
	}
	meta.EntityType = types.EntityType(et)
	meta.Status = types.SyncStatus(status)
	if lastSync != nil {
		meta.LastSyncAt = *lastSync
	}
	return &meta, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func upperAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(v)
	}
	return out
}
