package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/snapfind/backend/internal/domain"
)

// UserStore persists accounts in the users table.
type UserStore struct {
	store *Store
}

// NewUserStore creates a user store on the shared pool.
func NewUserStore(store *Store) *UserStore {
	return &UserStore{store: store}
}

// Create inserts a new user. A duplicate email maps to ErrUserExists.
func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	_, err := s.store.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (email) DO NOTHING`,
		user.ID, user.Email, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// GetByEmail fetches a user by email, returning ErrUserNotFound when absent.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := s.store.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &user, nil
}
