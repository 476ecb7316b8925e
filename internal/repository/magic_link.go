package repository

import (
	"context"
	"time"

	"github.com/hray3182/calfeed/internal/apperr"
	"github.com/hray3182/calfeed/internal/database"
	"github.com/hray3182/calfeed/internal/models"
)

type MagicLinkRepository struct {
	db *database.DB
}

func NewMagicLinkRepository(db *database.DB) *MagicLinkRepository {
	return &MagicLinkRepository{db: db}
}

func (r *MagicLinkRepository) Create(ctx context.Context, link *models.MagicLink) error {
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO magic_link (token, email, expires_at) VALUES ($1, $2, $3)
		 RETURNING created_at`,
		link.Token, link.Email, link.ExpiresAt,
	).Scan(&link.CreatedAt)
	if err != nil {
		return apperr.Storage("failed to store magic link", err)
	}
	return nil
}

// FindUnused returns the link only while it has not been redeemed.
func (r *MagicLinkRepository) FindUnused(ctx context.Context, token string) (*models.MagicLink, error) {
	link := &models.MagicLink{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT token, email, expires_at, used, used_at, created_at
		 FROM magic_link WHERE token = $1 AND used = FALSE`,
		token,
	).Scan(&link.Token, &link.Email, &link.ExpiresAt, &link.Used, &link.UsedAt, &link.CreatedAt)
	if err != nil {
		return nil, notFoundOr(err, "magic link")
	}
	return link, nil
}

// MarkUsed flips used to true if the link is still unused and unexpired at
// now. Exactly one of several concurrent callers gets true.
func (r *MagicLinkRepository) MarkUsed(ctx context.Context, token string, now time.Time) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE magic_link SET used = TRUE, used_at = $2
		 WHERE token = $1 AND used = FALSE AND expires_at >= $2`,
		token, now,
	)
	if err != nil {
		return false, apperr.Storage("failed to mark magic link used", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteExpiredBefore removes links that expired before cutoff.
func (r *MagicLinkRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM magic_link WHERE expires_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, apperr.Storage("failed to purge magic links", err)
	}
	return tag.RowsAffected(), nil
}
