package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const courseColumns = `id, name, moodle_id, description, hours, modality, start_date, end_date`

func scanCourse(row pgx.Row) (Course, error) {
	var c Course
	err := row.Scan(&c.ID, &c.Name, &c.MoodleID, &c.Description, &c.Hours, &c.Modality, &c.StartDate, &c.EndDate)
	return c, err
}

// FindAllCourses loads every course for cache warming.
func (s *Store) FindAllCourses(ctx context.Context) ([]Course, error) {
	rows, err := s.db.Query(ctx, `SELECT `+courseColumns+` FROM courses`)
	if err != nil {
		return nil, fmt.Errorf("find all courses: %w", err)
	}
	defer rows.Close()

	var courses []Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// FindCourseByMoodleID returns the course with the external id, or nil.
func (s *Store) FindCourseByMoodleID(ctx context.Context, moodleID int64) (*Course, error) {
	c, err := scanCourse(s.db.QueryRow(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE moodle_id = $1 ORDER BY id LIMIT 1`, moodleID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find course by moodle id: %w", err)
	}
	return &c, nil
}

// FindCourseByName returns the course with the exact stored name, or nil.
// Best-effort only: resolvers normally match on normalized names from the
// warmed cache and fall back here after a failed create.
func (s *Store) FindCourseByName(ctx context.Context, name string) (*Course, error) {
	c, err := scanCourse(s.db.QueryRow(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE name = $1 ORDER BY id LIMIT 1`, name))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find course by name: %w", err)
	}
	return &c, nil
}

// CreateCourse inserts the course and returns it with its assigned id.
func (s *Store) CreateCourse(ctx context.Context, c Course) (Course, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO courses (name, moodle_id, description, hours, modality, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		c.Name, c.MoodleID, c.Description, c.Hours, c.Modality, c.StartDate, c.EndDate,
	).Scan(&c.ID)
	if err != nil {
		return Course{}, fmt.Errorf("create course: %w", err)
	}
	return c, nil
}

// UpdateCourse persists the course's mutable fields.
func (s *Store) UpdateCourse(ctx context.Context, c Course) error {
	_, err := s.db.Exec(ctx, `
		UPDATE courses
		SET name = $2, moodle_id = $3, description = $4, hours = $5,
		    modality = $6, start_date = $7, end_date = $8
		WHERE id = $1`,
		c.ID, c.Name, c.MoodleID, c.Description, c.Hours, c.Modality, c.StartDate, c.EndDate,
	)
	if err != nil {
		return fmt.Errorf("update course %d: %w", c.ID, err)
	}
	return nil
}
