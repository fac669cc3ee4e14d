package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const centerColumns = `id, name, employer_number, company_id, import_key`

func scanCenter(row pgx.Row) (Center, error) {
	var c Center
	err := row.Scan(&c.ID, &c.Name, &c.EmployerNumber, &c.CompanyID, &c.ImportKey)
	return c, err
}

// FindAllCenters loads every center for cache warming.
func (s *Store) FindAllCenters(ctx context.Context) ([]Center, error) {
	rows, err := s.db.Query(ctx, `SELECT `+centerColumns+` FROM centers`)
	if err != nil {
		return nil, fmt.Errorf("find all centers: %w", err)
	}
	defer rows.Close()

	var centers []Center
	for rows.Next() {
		c, err := scanCenter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan center: %w", err)
		}
		centers = append(centers, c)
	}
	return centers, rows.Err()
}

// FindCenterByImportKey returns the center carrying the synthetic import
// key, or nil.
func (s *Store) FindCenterByImportKey(ctx context.Context, key string) (*Center, error) {
	c, err := scanCenter(s.db.QueryRow(ctx,
		`SELECT `+centerColumns+` FROM centers WHERE import_key = $1 ORDER BY id LIMIT 1`, key))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find center by import key: %w", err)
	}
	return &c, nil
}

// CreateCenter inserts the center and returns it with its assigned id.
func (s *Store) CreateCenter(ctx context.Context, c Center) (Center, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO centers (name, employer_number, company_id, import_key)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		c.Name, c.EmployerNumber, c.CompanyID, c.ImportKey,
	).Scan(&c.ID)
	if err != nil {
		return Center{}, fmt.Errorf("create center: %w", err)
	}
	return c, nil
}

// UpdateCenter persists the center's mutable fields (notably the import key
// backfilled onto pre-existing centers on first exact match).
func (s *Store) UpdateCenter(ctx context.Context, c Center) error {
	_, err := s.db.Exec(ctx, `
		UPDATE centers
		SET name = $2, employer_number = $3, company_id = $4, import_key = $5
		WHERE id = $1`,
		c.ID, c.Name, c.EmployerNumber, c.CompanyID, c.ImportKey,
	)
	if err != nil {
		return fmt.Errorf("update center %d: %w", c.ID, err)
	}
	return nil
}
