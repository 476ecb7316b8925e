package repository

import (
	"context"
	"time"

	"github.com/hray3182/calfeed/internal/apperr"
	"github.com/hray3182/calfeed/internal/database"
	"github.com/hray3182/calfeed/internal/models"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert creates the user if absent. Concurrent calls for the same email
// resolve to a single row.
func (r *UserRepository) Upsert(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO app_user (email) VALUES ($1)
		 ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		 RETURNING email, last_login_at, created_at`,
		email,
	).Scan(&user.Email, &user.LastLoginAt, &user.CreatedAt)
	if err != nil {
		return nil, apperr.Storage("failed to upsert user", err)
	}
	return user, nil
}

// TouchLogin records a successful sign-in.
func (r *UserRepository) TouchLogin(ctx context.Context, email string, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO app_user (email, last_login_at) VALUES ($1, $2)
		 ON CONFLICT (email) DO UPDATE SET last_login_at = EXCLUDED.last_login_at`,
		email, at,
	)
	if err != nil {
		return apperr.Storage("failed to update last login", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT email, last_login_at, created_at FROM app_user WHERE email = $1`,
		email,
	).Scan(&user.Email, &user.LastLoginAt, &user.CreatedAt)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	return user, nil
}
