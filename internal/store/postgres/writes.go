package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coursepilot/coursepilot/pkg/types"
)

// PutCourses upserts courses by natural key.
func (s *Store) PutCourses(ctx context.Context, courses []types.Course) error {
	for _, c := range courses {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO courses (code, term, institution, title, credits, description, collected_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (institution, term, code) DO UPDATE SET
				title        = EXCLUDED.title,
				credits      = EXCLUDED.credits,
				description  = EXCLUDED.description,
				collected_at = EXCLUDED.collected_at
		`, c.Code, c.Term, c.Institution, c.Title, c.Credits, c.Description, c.CollectedAt)
		if err != nil {
			return fmt.Errorf("postgres put course %s: %w", c.Code, err)
		}
	}
	return nil
}

// PutSections upserts sections by ID.
func (s *Store) PutSections(ctx context.Context, sections []types.Section) error {
	for _, sec := range sections {
		meetings, err := json.Marshal(sec.Meetings)
		if err != nil {
			return fmt.Errorf("marshal meetings for section %s: %w", sec.ID, err)
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO sections (id, course_code, term, institution, number, instructor,
				meetings, location, credits, seats_open, collected_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO UPDATE SET
				course_code  = EXCLUDED.course_code,
				term         = EXCLUDED.term,
				institution  = EXCLUDED.institution,
				number       = EXCLUDED.number,
				instructor   = EXCLUDED.instructor,
				meetings     = EXCLUDED.meetings,
				location     = EXCLUDED.location,
				credits      = EXCLUDED.credits,
				seats_open   = EXCLUDED.seats_open,
				collected_at = EXCLUDED.collected_at
		`, sec.ID, sec.CourseCode, sec.Term, sec.Institution, sec.Number, sec.Instructor,
			meetings, sec.Location, sec.Credits, sec.SeatsOpen, sec.CollectedAt)
		if err != nil {
			return fmt.Errorf("postgres put section %s: %w", sec.ID, err)
		}
	}
	return nil
}

// PutInstructors upserts instructors by natural key.
func (s *Store) PutInstructors(ctx context.Context, instructors []types.Instructor) error {
	for _, ins := range instructors {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO instructors (name, institution, rating, rating_count, difficulty,
				would_take_again, collected_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (institution, name) DO UPDATE SET
				rating           = EXCLUDED.rating,
				rating_count     = EXCLUDED.rating_count,
				difficulty       = EXCLUDED.difficulty,
				would_take_again = EXCLUDED.would_take_again,
				collected_at     = EXCLUDED.collected_at
		`, ins.Name, ins.Institution, ins.Rating, ins.RatingCount, ins.Difficulty,
			ins.WouldTakeAgain, ins.CollectedAt)
		if err != nil {
			return fmt.Errorf("postgres put instructor %s: %w", ins.Name, err)
		}
	}
	return nil
}

// PutSyncMetadata upserts the sync row for a tuple.
func (s *Store) PutSyncMetadata(ctx context.Context, meta types.SyncMetadata) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sync_metadata (entity_type, term, institution, status, last_sync_at,
			last_error, attempt_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (entity_type, term, institution) DO UPDATE SET
			status       = EXCLUDED.status,
			last_sync_at = EXCLUDED.last_sync_at,
			last_error   = EXCLUDED.last_error,
			attempt_id   = EXCLUDED.attempt_id,
			updated_at   = EXCLUDED.updated_at
	`, string(meta.EntityType), meta.Term, meta.Institution, string(meta.Status),
		nullableTime(meta.LastSyncAt), meta.LastError, meta.AttemptID, meta.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres put sync metadata: %w", err)
	}
	return nil
}
