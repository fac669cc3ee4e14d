package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jarruego/academyhub-sub000/internal/store"
)

// RepairMainCenters restores the exactly-one-main invariant: every user with
// at least one center association must have exactly one flagged main. For a
// user with no main it picks the association with the latest start date, or
// the first one encountered when no dates exist. Each correction runs in its
// own transaction so one user's failure cannot block the others.
func (s *Service) RepairMainCenters(ctx context.Context) (int, error) {
	all, err := s.stores.FindAllAssociations(ctx)
	if err != nil {
		return 0, fmt.Errorf("load associations: %w", err)
	}

	byUser := make(map[int64][]store.Association)
	var userOrder []int64
	for _, a := range all {
		if _, ok := byUser[a.UserID]; !ok {
			userOrder = append(userOrder, a.UserID)
		}
		byUser[a.UserID] = append(byUser[a.UserID], a)
	}

	repaired := 0
	for _, userID := range userOrder {
		assocs := byUser[userID]

		mains := 0
		for _, a := range assocs {
			if a.IsMain {
				mains++
			}
		}
		if mains == 1 {
			continue
		}

		pick := latestOrFirst(assocs)
		err := s.stores.InTx(ctx, func(tx Stores) error {
			return tx.SetMainAssociation(ctx, userID, pick.ID)
		})
		if err != nil {
			slog.Error("main-center repair failed for user",
				"user_id", userID, "association_id", pick.ID, "error", err)
			continue
		}
		repaired++
	}

	return repaired, nil
}

// latestOrFirst picks the association with the latest start date; ties go to
// the first encountered, and a dateless set yields the first association.
func latestOrFirst(assocs []store.Association) *store.Association {
	pick := &assocs[0]
	for i := range assocs {
		a := &assocs[i]
		if a.StartDate == nil {
			continue
		}
		if pick.StartDate == nil || a.StartDate.After(*pick.StartDate) {
			pick = a
		}
	}
	return pick
}
