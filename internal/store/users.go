package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, name, surname1, surname2, dni, nss, moodle_id, email, phone`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Surname1, &u.Surname2, &u.DNI, &u.NSS, &u.MoodleID, &u.Email, &u.Phone)
	return u, err
}

// FindAllUsers loads every user; the importer warms its identity caches from
// this once per run.
func (s *Store) FindAllUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.Query(ctx, `SELECT `+userColumns+` FROM users`)
	if err != nil {
		return nil, fmt.Errorf("find all users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// FindUserByID returns the user or nil when absent.
func (s *Store) FindUserByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return &u, nil
}

// CreateUser inserts the user and returns it with its assigned id.
func (s *Store) CreateUser(ctx context.Context, u User) (User, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (name, surname1, surname2, dni, nss, moodle_id, email, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		u.Name, u.Surname1, u.Surname2, u.DNI, u.NSS, u.MoodleID, u.Email, u.Phone,
	).Scan(&u.ID)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// UpdateUser persists every mutable field of the user.
func (s *Store) UpdateUser(ctx context.Context, u User) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET name = $2, surname1 = $3, surname2 = $4, dni = $5, nss = $6,
		    moodle_id = $7, email = $8, phone = $9
		WHERE id = $1`,
		u.ID, u.Name, u.Surname1, u.Surname2, u.DNI, u.NSS, u.MoodleID, u.Email, u.Phone,
	)
	if err != nil {
		return fmt.Errorf("update user %d: %w", u.ID, err)
	}
	return nil
}
