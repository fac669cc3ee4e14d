package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const groupColumns = `id, name, moodle_id, course_id, start_date, end_date`

func scanGroup(row pgx.Row) (Group, error) {
	var g Group
	err := row.Scan(&g.ID, &g.Name, &g.MoodleID, &g.CourseID, &g.StartDate, &g.EndDate)
	return g, err
}

// FindAllGroups loads every group for cache warming.
func (s *Store) FindAllGroups(ctx context.Context) ([]Group, error) {
	rows, err := s.db.Query(ctx, `SELECT `+groupColumns+` FROM groups`)
	if err != nil {
		return nil, fmt.Errorf("find all groups: %w", err)
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// FindGroupByMoodleID returns the group with the external id, or nil.
func (s *Store) FindGroupByMoodleID(ctx context.Context, moodleID int64) (*Group, error) {
	g, err := scanGroup(s.db.QueryRow(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE moodle_id = $1 ORDER BY id LIMIT 1`, moodleID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find group by moodle id: %w", err)
	}
	return &g, nil
}

// FindGroupByName returns the group with the exact stored name, or nil.
// Best-effort fallback after a failed create, like FindCourseByName.
func (s *Store) FindGroupByName(ctx context.Context, name string) (*Group, error) {
	g, err := scanGroup(s.db.QueryRow(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE name = $1 ORDER BY id LIMIT 1`, name))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find group by name: %w", err)
	}
	return &g, nil
}

// CreateGroup inserts the group and returns it with its assigned id.
func (s *Store) CreateGroup(ctx context.Context, g Group) (Group, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO groups (name, moodle_id, course_id, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		g.Name, g.MoodleID, g.CourseID, g.StartDate, g.EndDate,
	).Scan(&g.ID)
	if err != nil {
		return Group{}, fmt.Errorf("create group: %w", err)
	}
	return g, nil
}

// UpdateGroup persists the group's mutable fields.
func (s *Store) UpdateGroup(ctx context.Context, g Group) error {
	_, err := s.db.Exec(ctx, `
		UPDATE groups
		SET name = $2, moodle_id = $3, course_id = $4, start_date = $5, end_date = $6
		WHERE id = $1`,
		g.ID, g.Name, g.MoodleID, g.CourseID, g.StartDate, g.EndDate,
	)
	if err != nil {
		return fmt.Errorf("update group %d: %w", g.ID, err)
	}
	return nil
}
