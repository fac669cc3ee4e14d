package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jarruego/academyhub-sub000/internal/csvdata"
	"github.com/jarruego/academyhub-sub000/internal/logging"
	"github.com/jarruego/academyhub-sub000/internal/normalize"
	"github.com/jarruego/academyhub-sub000/internal/store"
)

// Run executes one import phase over the uploaded file. It decodes the
// buffer, warms the identity caches, and walks the rows strictly
// sequentially, recording a per-row outcome. Row failures never abort the
// run; the caller always gets the full report.
func (s *Service) Run(ctx context.Context, phase Phase, data []byte) (*Report, error) {
	doc, err := csvdata.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}

	cx, err := NewImportContext(ctx, s.stores)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ImportID: uuid.NewString(),
		Results:  []RowOutcome{},
		Errors:   []RowError{},
	}
	log := logging.WithFields(ctx, "import_id", report.ImportID, "phase", string(phase))
	sink := newBadRowSink(s.cfg.BadRowLog)

	log.Info("import started", "separator", string(doc.Separator()))

	rows := doc.Rows()
	rowNum := 0
	for {
		row, ok := rows.Next()
		if !ok {
			break
		}
		rowNum++

		outcome := s.processRow(ctx, cx, phase, rowNum, row)
		report.Results = append(report.Results, outcome)

		switch outcome.Status {
		case StatusError:
			report.Errors = append(report.Errors, RowError{
				Row:     rowNum,
				Phase:   phase,
				Message: outcome.Reason,
			})
			log.Error("row failed", "row", rowNum, "error", outcome.Reason)
			sink.record(rowNum, phase, outcome.Reason, row)
		case StatusSkipped:
			log.Debug("row skipped", "row", rowNum, "reason", outcome.Reason)
			sink.record(rowNum, phase, outcome.Reason, row)
		}
	}

	if rows.Err != nil {
		// Parser errors terminate the stream early; whatever parsed is kept.
		log.Warn("csv stream ended early", "rows_parsed", rowNum, "error", rows.Err)
	}

	if phase == PhaseAssociate {
		repaired, err := s.RepairMainCenters(ctx)
		if err != nil {
			log.Error("main-center repair failed", "error", err)
		} else if repaired > 0 {
			log.Info("main-center invariant repaired", "associations", repaired)
		}
	}

	if err := sink.flush(); err != nil {
		log.Warn("bad-row log write failed", "error", err)
	}

	report.Success = len(report.Errors) == 0
	log.Info("import finished",
		"rows", rowNum,
		"errors", len(report.Errors),
		"success", report.Success,
	)
	return report, nil
}

// processRow resolves a single row and classifies the outcome. Panics and
// errors are trapped here, at the row boundary.
func (s *Service) processRow(ctx context.Context, cx *ImportContext, phase Phase, rowNum int, row csvdata.Row) (out RowOutcome) {
	out = RowOutcome{Row: rowNum, Phase: phase}

	defer func() {
		if r := recover(); r != nil {
			out.Status = StatusError
			out.Reason = fmt.Sprintf("panic: %v", r)
		}
	}()

	if err := s.dispatch(ctx, cx, phase, row, &out); err != nil {
		var se *skipError
		if errors.As(err, &se) {
			out.Status = StatusSkipped
			out.Reason = se.reason
		} else {
			out.Status = StatusError
			out.Reason = err.Error()
		}
		return out
	}

	out.Status = StatusOK
	return out
}

func (s *Service) dispatch(ctx context.Context, cx *ImportContext, phase Phase, row csvdata.Row, out *RowOutcome) error {
	switch phase {
	case PhaseUsers:
		u, matchedBy, err := s.resolveUser(ctx, cx, row, true)
		if err != nil {
			return err
		}
		out.UserID = u.ID
		out.MatchedBy = matchedBy
		return nil

	case PhaseCompanies:
		company, _, err := s.resolveCompany(ctx, cx, row)
		if err != nil {
			return err
		}
		out.CompanyID = company.ID

		center, matchedBy, err := s.resolveCenter(ctx, cx, row, company)
		if err != nil {
			return err
		}
		out.CenterID = center.ID
		out.MatchedBy = matchedBy
		return nil

	case PhaseAssociate:
		return s.processAssociateRow(ctx, cx, row, out)

	case PhaseCourses:
		if f := extractUserFields(row); f.hasIdentity() {
			u, _, err := s.resolveUser(ctx, cx, row, false)
			if err != nil {
				return err
			}
			out.UserID = u.ID
		}

		course, matchedBy, err := s.resolveCourse(ctx, cx, row, true)
		if err != nil {
			return err
		}
		out.CourseID = course.ID
		out.MatchedBy = matchedBy
		return nil

	case PhaseGroups:
		if f := extractUserFields(row); f.hasIdentity() {
			u, _, err := s.resolveUser(ctx, cx, row, false)
			if err != nil {
				return err
			}
			out.UserID = u.ID
		}

		// Scope the group to its course when the row identifies one; the
		// groups phase never creates courses.
		var course *store.Course
		if rowHasCourse(row) {
			c, _, err := s.resolveCourse(ctx, cx, row, false)
			if err != nil {
				return err
			}
			course = c
			out.CourseID = c.ID
		}

		group, matchedBy, err := s.resolveGroup(ctx, cx, row, course)
		if err != nil {
			return err
		}
		out.GroupID = group.ID
		out.MatchedBy = matchedBy
		return nil

	default:
		return fmt.Errorf("unknown phase %q", phase)
	}
}

func rowHasCourse(row csvdata.Row) bool {
	if _, ok := normalize.NumericID(row[csvdata.ColMoodleIDCourse]); ok {
		return true
	}
	return row[csvdata.ColCourseName] != ""
}
