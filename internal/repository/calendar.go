package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hray3182/calfeed/internal/apperr"
	"github.com/hray3182/calfeed/internal/database"
	"github.com/hray3182/calfeed/internal/models"
)

const calendarColumns = `calendar_id, public_id, name, description, owner_email,
	source_type, source_ref, mirrored_at, created_at`

type CalendarRepository struct {
	db *database.DB
}

func NewCalendarRepository(db *database.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// Create inserts the calendar, assigning a fresh public id if none is set.
func (r *CalendarRepository) Create(ctx context.Context, cal *models.Calendar) error {
	if cal.PublicID == "" {
		cal.PublicID = uuid.NewString()
	}
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO calendar (public_id, name, description, owner_email, source_type, source_ref)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING calendar_id, created_at`,
		cal.PublicID, cal.Name, cal.Description, cal.OwnerEmail, cal.SourceType, cal.SourceRef,
	).Scan(&cal.ID, &cal.CreatedAt)
	if err != nil {
		return apperr.Storage("failed to create calendar", err)
	}
	return nil
}

func (r *CalendarRepository) GetByPublicID(ctx context.Context, publicID string) (*models.Calendar, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+calendarColumns+` FROM calendar WHERE public_id = $1`,
		publicID,
	)
	cal, err := scanCalendar(row)
	if err != nil {
		return nil, notFoundOr(err, "calendar")
	}
	return cal, nil
}

// GetOwned is GetByPublicID restricted to the given owner.
func (r *CalendarRepository) GetOwned(ctx context.Context, publicID, owner string) (*models.Calendar, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+calendarColumns+` FROM calendar WHERE public_id = $1 AND owner_email = $2`,
		publicID, owner,
	)
	cal, err := scanCalendar(row)
	if err != nil {
		return nil, notFoundOr(err, "calendar")
	}
	return cal, nil
}

func (r *CalendarRepository) ListByOwner(ctx context.Context, owner string) ([]*models.Calendar, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+calendarColumns+` FROM calendar WHERE owner_email = $1
		 ORDER BY created_at ASC`,
		owner,
	)
	if err != nil {
		return nil, apperr.Storage("failed to list calendars", err)
	}
	defer rows.Close()

	return r.scanCalendars(rows)
}

// ListMirrored returns every calendar backed by a remote source.
func (r *CalendarRepository) ListMirrored(ctx context.Context) ([]*models.Calendar, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+calendarColumns+` FROM calendar WHERE source_type IS NOT NULL
		 ORDER BY mirrored_at ASC NULLS FIRST`,
	)
	if err != nil {
		return nil, apperr.Storage("failed to list mirrored calendars", err)
	}
	defer rows.Close()

	return r.scanCalendars(rows)
}

func (r *CalendarRepository) MarkMirrored(ctx context.Context, calendarID int64, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE calendar SET mirrored_at = $1 WHERE calendar_id = $2`,
		at, calendarID,
	)
	if err != nil {
		return apperr.Storage("failed to mark calendar mirrored", err)
	}
	return nil
}

// Delete removes the calendar and, through the foreign key, its events.
func (r *CalendarRepository) Delete(ctx context.Context, calendarID int64) error {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM calendar WHERE calendar_id = $1`,
		calendarID,
	)
	if err != nil {
		return apperr.Storage("failed to delete calendar", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("calendar not found")
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCalendar(row scanner) (*models.Calendar, error) {
	cal := &models.Calendar{}
	err := row.Scan(&cal.ID, &cal.PublicID, &cal.Name, &cal.Description, &cal.OwnerEmail,
		&cal.SourceType, &cal.SourceRef, &cal.MirroredAt, &cal.CreatedAt)
	if err != nil {
		return nil, err
	}
	return cal, nil
}

func (r *CalendarRepository) scanCalendars(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*models.Calendar, error) {
	var calendars []*models.Calendar
	for rows.Next() {
		cal, err := scanCalendar(rows)
		if err != nil {
			return nil, apperr.Storage("failed to scan calendar", err)
		}
		calendars = append(calendars, cal)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("failed to read calendars", err)
	}
	return calendars, nil
}
