package repository

import (
	"errors"

	"github.com/hray3182/calfeed/internal/apperr"
	"github.com/jackc/pgx/v5"
)

// notFoundOr maps pgx.ErrNoRows to a NotFound error and wraps anything else
// as a storage failure.
func notFoundOr(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(what + " not found")
	}
	return apperr.Storage("failed to load "+what, err)
}
