package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jarruego/academyhub-sub000/internal/csvdata"
	"github.com/jarruego/academyhub-sub000/internal/normalize"
	"github.com/jarruego/academyhub-sub000/internal/store"
)

// processAssociateRow links a user to a center. The association upsert and
// the main-flag recomputation happen inside one transaction, so a reader
// never observes two main associations for the same user.
func (s *Service) processAssociateRow(ctx context.Context, cx *ImportContext, row csvdata.Row, out *RowOutcome) error {
	user, matchedBy, err := s.resolveUser(ctx, cx, row, false)
	if err != nil {
		return err
	}
	out.UserID = user.ID
	out.MatchedBy = matchedBy

	// An empty tax id is not fatal here: the center resolver has a global
	// same-name fallback for company-less rows.
	company, _, err := s.resolveCompany(ctx, cx, row)
	if err != nil {
		var se *skipError
		if !errors.As(err, &se) {
			return err
		}
	}
	if company != nil {
		out.CompanyID = company.ID
	}

	center, _, err := s.resolveCenter(ctx, cx, row, company)
	if err != nil {
		return err
	}
	out.CenterID = center.ID

	assoc := store.Association{
		UserID:   user.ID,
		CenterID: center.ID,
	}
	if t, ok := normalize.Date(row[csvdata.ColStartDate]); ok {
		assoc.StartDate = &t
	}
	if t, ok := normalize.Date(row[csvdata.ColEndDate]); ok {
		assoc.EndDate = &t
	}

	err = s.stores.InTx(ctx, func(tx Stores) error {
		if _, err := tx.UpsertAssociation(ctx, assoc); err != nil {
			return err
		}

		all, err := tx.FindAssociationsByUser(ctx, user.ID)
		if err != nil {
			return err
		}

		// Only a single strictly most-recent start date earns the main
		// flag; ties and dateless sets stay non-main for the repair sweep.
		if winner := uniqueLatest(all); winner != nil {
			return tx.SetMainAssociation(ctx, user.ID, winner.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("persist association: %w", err)
	}
	return nil
}

// uniqueLatest returns the association holding the single most recent start
// date, or nil when there is a tie or no dates at all.
func uniqueLatest(assocs []store.Association) *store.Association {
	var winner *store.Association
	var latest time.Time
	ties := 0

	for i := range assocs {
		a := &assocs[i]
		if a.StartDate == nil {
			continue
		}
		switch {
		case winner == nil || a.StartDate.After(latest):
			winner = a
			latest = *a.StartDate
			ties = 0
		case a.StartDate.Equal(latest):
			ties++
		}
	}

	if winner == nil || ties > 0 {
		return nil
	}
	return winner
}
