package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ats_workflow/internal/domain/user"
)

var ErrUserNotFound = fmt.Errorf("user not found")

const (
	// ON CONFLICT makes concurrent provisioning of one email safe without locks.
	insertUserIfAbsentQuery = `INSERT INTO users (cognito_sub, email, role, first_name, last_name)
               VALUES ($1, $2, $3, $4, $5)
               ON CONFLICT (email) DO NOTHING
               RETURNING user_id, created_at`

	selectUserByEmailQuery = `SELECT user_id, cognito_sub, email, role, first_name, last_name, created_at
               FROM users WHERE email = $1`
)

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) InsertIfAbsent(ctx context.Context, u *user.User) (bool, error) {
	err := r.db.QueryRowContext(ctx, insertUserIfAbsentQuery,
		nullIfEmpty(u.Sub), u.Email, string(u.Role), nullIfEmpty(u.FirstName), nullIfEmpty(u.LastName),
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		// DO NOTHING returns no row when the email is already taken.
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("error inserting user: %w", err)
	}
	return true, nil
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	u := &user.User{}
	var sub, first, last sql.NullString
	var role string
	err := r.db.QueryRowContext(ctx, selectUserByEmailQuery, email).Scan(&u.ID, &sub, &u.Email, &role, &first, &last, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error getting user by email: %w", err)
	}
	u.Sub = sub.String
	u.Role = user.Role(role)
	u.FirstName = first.String
	u.LastName = last.String
	return u, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
