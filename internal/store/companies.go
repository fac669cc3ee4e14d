package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// FindAllCompanies loads every company for cache warming.
func (s *Store) FindAllCompanies(ctx context.Context) ([]Company, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, cif FROM companies`)
	if err != nil {
		return nil, fmt.Errorf("find all companies: %w", err)
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name, &c.CIF); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// FindCompanyByCIF returns the company with the given tax id, or nil.
// When duplicates exist the lowest id wins, which keeps re-fetch after a
// racing create deterministic.
func (s *Store) FindCompanyByCIF(ctx context.Context, cif string) (*Company, error) {
	var c Company
	err := s.db.QueryRow(ctx,
		`SELECT id, name, cif FROM companies WHERE cif = $1 ORDER BY id LIMIT 1`, cif,
	).Scan(&c.ID, &c.Name, &c.CIF)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find company by cif: %w", err)
	}
	return &c, nil
}

// CreateCompany inserts the company and returns it with its assigned id.
func (s *Store) CreateCompany(ctx context.Context, c Company) (Company, error) {
	err := s.db.QueryRow(ctx,
		`INSERT INTO companies (name, cif) VALUES ($1, $2) RETURNING id`,
		c.Name, c.CIF,
	).Scan(&c.ID)
	if err != nil {
		return Company{}, fmt.Errorf("create company: %w", err)
	}
	return c, nil
}

// UpdateCompany persists the company's mutable fields.
func (s *Store) UpdateCompany(ctx context.Context, c Company) error {
	_, err := s.db.Exec(ctx,
		`UPDATE companies SET name = $2, cif = $3 WHERE id = $1`,
		c.ID, c.Name, c.CIF,
	)
	if err != nil {
		return fmt.Errorf("update company %d: %w", c.ID, err)
	}
	return nil
}
