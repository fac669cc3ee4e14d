package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jarruego/academyhub-sub000/internal/csvdata"
	"github.com/jarruego/academyhub-sub000/internal/normalize"
	"github.com/jarruego/academyhub-sub000/internal/store"
)

type groupFields struct {
	moodleID  int64
	rawName   string
	normName  string
	startDate *time.Time
	endDate   *time.Time
}

func extractGroupFields(row csvdata.Row) groupFields {
	f := groupFields{
		rawName: strings.TrimSpace(row[csvdata.ColGroupName]),
	}
	f.normName = normalize.Name(f.rawName)
	f.moodleID, _ = normalize.NumericID(row[csvdata.ColMoodleIDGroup])

	if t, ok := normalize.Date(row[csvdata.ColStartDate]); ok {
		f.startDate = &t
	}
	if t, ok := normalize.Date(row[csvdata.ColEndDate]); ok {
		f.endDate = &t
	}
	return f
}

// resolveGroup finds or creates the group a row refers to, scoped to its
// parent course when one is known. Like courses, an external id is
// authoritative and never overridden by name matching.
func (s *Service) resolveGroup(ctx context.Context, cx *ImportContext, row csvdata.Row, course *store.Course) (*store.Group, string, error) {
	f := extractGroupFields(row)

	var courseID int64
	if course != nil {
		courseID = course.ID
	}

	if f.moodleID > 0 {
		if g := cx.seenGroupsByMoodleID[f.moodleID]; g != nil {
			return g, "moodle_id", s.widenGroup(ctx, g, f, courseID)
		}
		if g := cx.groupsByMoodleID[f.moodleID]; g != nil {
			cx.seenGroupsByMoodleID[f.moodleID] = g
			return g, "moodle_id", s.widenGroup(ctx, g, f, courseID)
		}
		if g, err := s.stores.FindGroupByMoodleID(ctx, f.moodleID); err != nil {
			return nil, "", fmt.Errorf("find group by moodle id: %w", err)
		} else if g != nil {
			cx.seenGroupsByMoodleID[f.moodleID] = g
			return g, "moodle_id", s.widenGroup(ctx, g, f, courseID)
		}

		g, err := s.createGroup(ctx, cx, f, courseID)
		if err != nil {
			return nil, "", err
		}
		return g, "created", nil
	}

	if f.normName == "" {
		return nil, "", skip(ReasonGroupNotFound)
	}

	key := groupNameKey(courseID, f.normName)
	if g := cx.seenGroupsByName[key]; g != nil {
		return g, "name", s.widenGroup(ctx, g, f, courseID)
	}
	if g := cx.groupsByName[key]; g != nil {
		cx.seenGroupsByName[key] = g
		return g, "name", s.widenGroup(ctx, g, f, courseID)
	}

	g, err := s.createGroup(ctx, cx, f, courseID)
	if err != nil {
		return nil, "", err
	}
	return g, "created", nil
}

// createGroup persists a new group with the same retry-then-refetch
// tolerance as courses.
func (s *Service) createGroup(ctx context.Context, cx *ImportContext, f groupFields, courseID int64) (*store.Group, error) {
	group := store.Group{
		Name:      f.rawName,
		MoodleID:  f.moodleID,
		CourseID:  courseID,
		StartDate: f.startDate,
		EndDate:   f.endDate,
	}

	created, err := s.stores.CreateGroup(ctx, group)
	if err != nil {
		s.sleep(s.cfg.CreateRetryDelay)
		created, err = s.stores.CreateGroup(ctx, group)
	}
	if err != nil {
		var found *store.Group
		var ferr error
		if f.moodleID > 0 {
			found, ferr = s.stores.FindGroupByMoodleID(ctx, f.moodleID)
		} else {
			found, ferr = s.stores.FindGroupByName(ctx, f.rawName)
		}
		if ferr != nil || found == nil {
			return nil, fmt.Errorf("create group: %w", err)
		}
		created = *found
	}

	g := &created
	if g.MoodleID > 0 {
		cx.seenGroupsByMoodleID[g.MoodleID] = g
	}
	if key := groupNameKey(courseID, f.normName); key != "" {
		cx.seenGroupsByName[key] = g
	}
	return g, nil
}

// widenGroup fills missing fields, including the parent course when the
// stored group predates course scoping.
func (s *Service) widenGroup(ctx context.Context, g *store.Group, f groupFields, courseID int64) error {
	changed := false

	if g.Name == "" && f.rawName != "" {
		g.Name = f.rawName
		changed = true
	}
	if g.CourseID == 0 && courseID > 0 {
		g.CourseID = courseID
		changed = true
	}
	if g.StartDate == nil && f.startDate != nil {
		g.StartDate = f.startDate
		changed = true
	}
	if g.EndDate == nil && f.endDate != nil {
		g.EndDate = f.endDate
		changed = true
	}

	if !changed {
		return nil
	}
	if err := s.stores.UpdateGroup(ctx, *g); err != nil {
		return fmt.Errorf("widen group %d: %w", g.ID, err)
	}
	return nil
}
