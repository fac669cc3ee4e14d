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

// courseFields holds the normalized course data a row carries.
type courseFields struct {
	moodleID    int64
	rawName     string
	normName    string
	description string
	hours       float64
	modality    string
	startDate   *time.Time
	endDate     *time.Time
}

func extractCourseFields(row csvdata.Row) courseFields {
	f := courseFields{
		rawName:     strings.TrimSpace(row[csvdata.ColCourseName]),
		description: normalize.Description(row[csvdata.ColDescription]),
		modality:    strings.TrimSpace(row[csvdata.ColModality]),
	}
	f.normName = normalize.Name(f.rawName)
	f.moodleID, _ = normalize.NumericID(row[csvdata.ColMoodleIDCourse])

	// The hours column arrives either as a decimal hour count or as a
	// duration ("25:30:00", "06h 14m 24s"); both collapse to hours.
	if h, ok := normalize.Hours(row[csvdata.ColHours]); ok {
		f.hours = h
	} else if secs, ok := normalize.Duration(row[csvdata.ColHours]); ok {
		f.hours = float64(secs) / 3600
	}

	if t, ok := normalize.Date(row[csvdata.ColStartDate]); ok {
		f.startDate = &t
	}
	if t, ok := normalize.Date(row[csvdata.ColEndDate]); ok {
		f.endDate = &t
	}
	return f
}

// resolveCourse finds or creates the course a row refers to. An external
// (Moodle) id on the row is authoritative: lookup is by id only and name
// matching never overrides it, so two same-named but distinct courses stay
// distinct. Only id-less rows fall back to normalized-name matching.
func (s *Service) resolveCourse(ctx context.Context, cx *ImportContext, row csvdata.Row, allowCreate bool) (*store.Course, string, error) {
	f := extractCourseFields(row)

	if f.moodleID > 0 {
		if c := cx.seenCoursesByMoodleID[f.moodleID]; c != nil {
			return c, "moodle_id", s.widenCourse(ctx, c, f)
		}
		if c := cx.coursesByMoodleID[f.moodleID]; c != nil {
			cx.seenCoursesByMoodleID[f.moodleID] = c
			return c, "moodle_id", s.widenCourse(ctx, c, f)
		}
		if c, err := s.stores.FindCourseByMoodleID(ctx, f.moodleID); err != nil {
			return nil, "", fmt.Errorf("find course by moodle id: %w", err)
		} else if c != nil {
			cx.seenCoursesByMoodleID[f.moodleID] = c
			return c, "moodle_id", s.widenCourse(ctx, c, f)
		}

		if !allowCreate {
			return nil, "", skip(ReasonCourseNotFound)
		}
		c, err := s.createCourse(ctx, cx, f)
		if err != nil {
			return nil, "", err
		}
		return c, "created", nil
	}

	if f.normName == "" {
		return nil, "", skip(ReasonCourseNotFound)
	}

	if c := cx.seenCoursesByName[f.normName]; c != nil {
		return c, "name", s.widenCourse(ctx, c, f)
	}
	if c := cx.coursesByName[f.normName]; c != nil {
		cx.seenCoursesByName[f.normName] = c
		return c, "name", s.widenCourse(ctx, c, f)
	}

	if !allowCreate {
		return nil, "", skip(ReasonCourseNotFound)
	}
	c, err := s.createCourse(ctx, cx, f)
	if err != nil {
		return nil, "", err
	}
	return c, "created", nil
}

// createCourse persists a new course, retrying once after a short delay on
// failure (transient conflict tolerance) and falling back to a best-effort
// re-fetch by id or name before giving up.
func (s *Service) createCourse(ctx context.Context, cx *ImportContext, f courseFields) (*store.Course, error) {
	course := store.Course{
		Name:        f.rawName,
		MoodleID:    f.moodleID,
		Description: f.description,
		Hours:       f.hours,
		Modality:    f.modality,
		StartDate:   f.startDate,
		EndDate:     f.endDate,
	}

	created, err := s.stores.CreateCourse(ctx, course)
	if err != nil {
		s.sleep(s.cfg.CreateRetryDelay)
		created, err = s.stores.CreateCourse(ctx, course)
	}
	if err != nil {
		var found *store.Course
		var ferr error
		if f.moodleID > 0 {
			found, ferr = s.stores.FindCourseByMoodleID(ctx, f.moodleID)
		} else {
			found, ferr = s.stores.FindCourseByName(ctx, f.rawName)
		}
		if ferr != nil || found == nil {
			return nil, fmt.Errorf("create course: %w", err)
		}
		created = *found
	}

	c := &created
	if c.MoodleID > 0 {
		cx.seenCoursesByMoodleID[c.MoodleID] = c
	}
	if f.normName != "" {
		cx.seenCoursesByName[f.normName] = c
	}
	return c, nil
}

// widenCourse fills fields the stored course is missing. The name set by an
// id-keyed record is never replaced by a row's name.
func (s *Service) widenCourse(ctx context.Context, c *store.Course, f courseFields) error {
	changed := false

	if c.Name == "" && f.rawName != "" {
		c.Name = f.rawName
		changed = true
	}
	if c.Description == "" && f.description != "" {
		c.Description = f.description
		changed = true
	}
	if c.Hours == 0 && f.hours > 0 {
		c.Hours = f.hours
		changed = true
	}
	if c.Modality == "" && f.modality != "" {
		c.Modality = f.modality
		changed = true
	}
	if c.StartDate == nil && f.startDate != nil {
		c.StartDate = f.startDate
		changed = true
	}
	if c.EndDate == nil && f.endDate != nil {
		c.EndDate = f.endDate
		changed = true
	}

	if !changed {
		return nil
	}
	if err := s.stores.UpdateCourse(ctx, *c); err != nil {
		return fmt.Errorf("widen course %d: %w", c.ID, err)
	}
	return nil
}
