package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/meetsched/internal/model"
	"github.com/md-rashed-zaman/meetsched/internal/outbox"
	"github.com/md-rashed-zaman/meetsched/libs/db"
)

type EventRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewEventRepository(pool *db.Pool, outboxRepo *outbox.Repository) *EventRepository {
	return &EventRepository{pool: pool, outbox: outboxRepo}
}

// ListCreatedForUser returns the events the user takes part in, as organizer
// or attendee, that are still in the created state. Start times come back in
// UTC, ascending.
func (r *EventRepository) ListCreatedForUser(ctx context.Context, userID string) ([]model.Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT event_id::text, organizer_id, attendee_id, start_time, duration_minutes,
			COALESCE(notes, ''), status, created_at, updated_at
		FROM events
		WHERE (organizer_id = $1 OR attendee_id = $1)
			AND status = 'created'
		ORDER BY start_time ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(
			&e.EventID,
			&e.OrganizerID,
			&e.AttendeeID,
			&e.StartTime,
			&e.DurationMinutes,
			&e.Notes,
			&e.Status,
			&e.CreatedAt,
			&e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		e.StartTime = e.StartTime.UTC()
		events = append(events, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}

// SaveNew persists a validated booking together with its outbox record in one
// transaction, so the booked event is published iff the write committed.
func (r *EventRepository) SaveNew(ctx context.Context, e model.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO events
			(event_id, organizer_id, attendee_id, start_time, duration_minutes, notes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.EventID, e.OrganizerID, e.AttendeeID, e.StartTime, e.DurationMinutes, e.Notes, e.Status, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{
		"event_id":         e.EventID,
		"organizer_id":     e.OrganizerID,
		"attendee_id":      e.AttendeeID,
		"start_time":       e.StartTime.UTC().Format(time.RFC3339),
		"duration_minutes": e.DurationMinutes,
	})
	if err != nil {
		return err
	}
	if err := r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "event",
		AggregateID:   e.EventID,
		EventType:     "schedule.event.booked.v1",
		Payload:       payload,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
