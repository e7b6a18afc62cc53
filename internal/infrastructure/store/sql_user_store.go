package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/ec-cart/internal/auth"
)

type SQLUserStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLUserStore(db *sql.DB, dialect Dialect) *SQLUserStore {
	return &SQLUserStore{db: db, dialect: dialect}
}

func (s *SQLUserStore) CreateUser(ctx context.Context, u *auth.User) error {
	_, err := s.db.ExecContext(ctx,
		s.dialect.rebind(`INSERT INTO users (id, email, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?)`),
		u.ID, u.Email, u.PasswordHash, u.Role, u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return auth.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *SQLUserStore) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	u := &auth.User{}
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT id, email, password_hash, role, created_at FROM users WHERE email = ?`), email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}
