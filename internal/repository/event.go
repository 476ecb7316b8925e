package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/hray3182/calfeed/internal/apperr"
	"github.com/hray3182/calfeed/internal/database"
	"github.com/hray3182/calfeed/internal/models"
	"github.com/jackc/pgx/v5"
)

const eventColumns = `event_id, public_id, calendar_id, title, description, location,
	event_date, start_time, end_time, origin, remote_uid, created_at`

const insertEvent = `INSERT INTO event (public_id, calendar_id, title, description, location,
	event_date, start_time, end_time, origin, remote_uid)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING event_id, created_at`

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	prepareEvent(event)
	err := r.db.Pool.QueryRow(ctx, insertEvent, eventArgs(event)...).
		Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return apperr.Storage("failed to create event", err)
	}
	return nil
}

// ListByCalendar returns the calendar's events ordered by date, then by
// start time with untimed events at noon.
func (r *EventRepository) ListByCalendar(ctx context.Context, calendarID int64) ([]*models.Event, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+eventColumns+` FROM event WHERE calendar_id = $1
		 ORDER BY event_date ASC, COALESCE(start_time, '12:00') ASC, event_id ASC`,
		calendarID,
	)
	if err != nil {
		return nil, apperr.Storage("failed to list events", err)
	}
	defer rows.Close()

	return r.scanEvents(rows)
}

// Delete removes one event of a calendar. It reports NotFound when the
// event does not belong to the calendar.
func (r *EventRepository) Delete(ctx context.Context, calendarID int64, publicID string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM event WHERE calendar_id = $1 AND public_id = $2`,
		calendarID, publicID,
	)
	if err != nil {
		return apperr.Storage("failed to delete event", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("event not found")
	}
	return nil
}

// ReplaceRemote swaps the calendar's mirrored events for the given set in a
// single transaction. Locally created events are left alone. The calendar
// row is locked first so concurrent syncs of one calendar run one after the
// other.
func (r *EventRepository) ReplaceRemote(ctx context.Context, calendarID int64, events []*models.Event) error {
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`SELECT 1 FROM calendar WHERE calendar_id = $1 FOR UPDATE`,
			calendarID,
		); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`DELETE FROM event WHERE calendar_id = $1 AND origin = 'remote'`,
			calendarID,
		); err != nil {
			return err
		}

		for _, event := range events {
			event.CalendarID = calendarID
			event.Origin = models.OriginRemote
			prepareEvent(event)
			if err := tx.QueryRow(ctx, insertEvent, eventArgs(event)...).
				Scan(&event.ID, &event.CreatedAt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperr.Storage("failed to replace mirrored events", err)
	}
	return nil
}

func prepareEvent(event *models.Event) {
	if event.PublicID == "" {
		event.PublicID = uuid.NewString()
	}
	if event.Origin == "" {
		event.Origin = models.OriginLocal
	}
}

func eventArgs(event *models.Event) []any {
	return []any{
		event.PublicID, event.CalendarID, event.Title, event.Description, event.Location,
		event.Date, event.StartTime, event.EndTime, event.Origin, event.RemoteUID,
	}
}

func (r *EventRepository) scanEvents(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*models.Event, error) {
	var events []*models.Event
	for rows.Next() {
		event := &models.Event{}
		if err := rows.Scan(&event.ID, &event.PublicID, &event.CalendarID, &event.Title,
			&event.Description, &event.Location, &event.Date, &event.StartTime, &event.EndTime,
			&event.Origin, &event.RemoteUID, &event.CreatedAt); err != nil {
			return nil, apperr.Storage("failed to scan event", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("failed to read events", err)
	}
	return events, nil
}
