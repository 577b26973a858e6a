package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/staybook/settlement-backend/internal/models"
)

// UserRepo handles user lookups
type UserRepo struct {
	db sqlx.ExtContext
}

// NewUserRepo creates a new user repository
func NewUserRepo(db sqlx.ExtContext) *UserRepo {
	return &UserRepo{db: db}
}

// GetUser retrieves a user by ID
func (r *UserRepo) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
		SELECT id, phone, COALESCE(first_name, '') AS first_name, COALESCE(last_name, '') AS last_name,
		       COALESCE(email, '') AS email, status, created_at
		FROM users
		WHERE id = $1`

	var u models.User
	err := sqlx.GetContext(ctx, r.db, &u, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundError("user")
	}
	if err != nil {
		return nil, translateError(err, "failed to get user")
	}
	return &u, nil
}
