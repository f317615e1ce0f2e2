package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the durable UserStore backed by the users table.
// Safe for concurrent use; uniqueness is enforced by the primary key, so
// concurrent signups race in the database, not in process memory.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore over an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("auth: pool is required")
	}
	return &PostgresStore{pool: pool}, nil
}

// Get implements UserStore.
func (s *PostgresStore) Get(ctx context.Context, username string) (User, error) {
	var user User
	err := s.pool.QueryRow(ctx,
		`SELECT username, hashed_password, email, full_name FROM users WHERE username = $1`,
		username,
	).Scan(&user.Username, &user.HashedPassword, &user.Email, &user.FullName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("querying user %q: %w", username, err)
	}
	return user, nil
}

// Put implements UserStore. ON CONFLICT DO NOTHING keeps the first record
// and reports the duplicate.
func (s *PostgresStore) Put(ctx context.Context, user User) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO users (username, hashed_password, email, full_name)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (username) DO NOTHING`,
		user.Username, user.HashedPassword, user.Email, user.FullName,
	)
	if err != nil {
		return fmt.Errorf("inserting user %q: %w", user.Username, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserExists
	}
	return nil
}

// Exists implements UserStore.
func (s *PostgresStore) Exists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking username %q: %w", username, err)
	}
	return exists, nil
}
