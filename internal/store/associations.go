package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const assocColumns = `id, user_id, center_id, start_date, end_date, is_main`

func scanAssociation(row pgx.Row) (Association, error) {
	var a Association
	err := row.Scan(&a.ID, &a.UserID, &a.CenterID, &a.StartDate, &a.EndDate, &a.IsMain)
	return a, err
}

// FindAllAssociations loads every user-center association, ordered by id so
// "first association encountered" is stable for the repair sweep.
func (s *Store) FindAllAssociations(ctx context.Context) ([]Association, error) {
	rows, err := s.db.Query(ctx, `SELECT `+assocColumns+` FROM user_center ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("find all associations: %w", err)
	}
	defer rows.Close()

	var assocs []Association
	for rows.Next() {
		a, err := scanAssociation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan association: %w", err)
		}
		assocs = append(assocs, a)
	}
	return assocs, rows.Err()
}

// FindAssociationsByUser returns the user's associations ordered by id.
func (s *Store) FindAssociationsByUser(ctx context.Context, userID int64) ([]Association, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+assocColumns+` FROM user_center WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("find associations for user %d: %w", userID, err)
	}
	defer rows.Close()

	var assocs []Association
	for rows.Next() {
		a, err := scanAssociation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan association: %w", err)
		}
		assocs = append(assocs, a)
	}
	return assocs, rows.Err()
}

// UpsertAssociation inserts the (user, center) association or refreshes its
// dates when it already exists. Returns the stored row.
func (s *Store) UpsertAssociation(ctx context.Context, a Association) (Association, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO user_center (user_id, center_id, start_date, end_date, is_main)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, center_id) DO UPDATE
		SET start_date = COALESCE(EXCLUDED.start_date, user_center.start_date),
		    end_date   = COALESCE(EXCLUDED.end_date, user_center.end_date)
		RETURNING `+assocColumns,
		a.UserID, a.CenterID, a.StartDate, a.EndDate, a.IsMain,
	).Scan(&a.ID, &a.UserID, &a.CenterID, &a.StartDate, &a.EndDate, &a.IsMain)
	if err != nil {
		return Association{}, fmt.Errorf("upsert association: %w", err)
	}
	return a, nil
}

// SetMainAssociation marks one association as the user's main and clears the
// flag on every sibling. Run inside InTx so the flip is atomic.
func (s *Store) SetMainAssociation(ctx context.Context, userID, assocID int64) error {
	if _, err := s.db.Exec(ctx,
		`UPDATE user_center SET is_main = FALSE WHERE user_id = $1 AND id <> $2`,
		userID, assocID,
	); err != nil {
		return fmt.Errorf("clear main flags for user %d: %w", userID, err)
	}
	if _, err := s.db.Exec(ctx,
		`UPDATE user_center SET is_main = TRUE WHERE id = $1`, assocID,
	); err != nil {
		return fmt.Errorf("set main flag on association %d: %w", assocID, err)
	}
	return nil
}
