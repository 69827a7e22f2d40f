package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/eventboard/internal/persistence"
)

// EventRepository implements persistence.EventRepository using SQLite
type EventRepository struct {
	pool *ConnectionPool
}

// NewEventRepository creates a new SQLite event repository
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{pool: pool}
}

const selectEventColumns = `
	SELECT id, creator_id, creator_name, title, description, location, image_url,
	       event_date, event_time, is_admin_event, created_at, updated_at
	FROM events
`

// CreateEvent inserts a new event. Attendees supplied on the record are
// inserted in order.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return fmt.Errorf("sqlite: event id is required")
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO events (id, creator_id, creator_name, title, description, location, image_url,
			                    event_date, event_time, is_admin_event, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			event.ID,
			event.CreatorID,
			event.CreatorName,
			event.Title,
			event.Description,
			event.Location,
			event.ImageURL,
			event.Date,
			event.Time,
			event.IsAdminEvent,
			formatTime(event.CreatedAt),
			formatTime(event.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}

		for _, userID := range event.Attendees {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO event_attendees (event_id, user_id, joined_at) VALUES (?, ?, ?)
				ON CONFLICT (event_id, user_id) DO NOTHING
			`, event.ID, userID, formatTime(event.CreatedAt)); err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// GetEvent retrieves an event and its attendees by ID.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	if id == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}

	row := r.pool.DB().QueryRowContext(ctx, selectEventColumns+` WHERE id = ?`, id)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Event{}, persistence.ErrNotFound
		}
		return persistence.Event{}, mapError(err)
	}

	attendees, err := r.attendees(ctx, id)
	if err != nil {
		return persistence.Event{}, err
	}
	event.Attendees = attendees
	return event, nil
}

// ListEvents returns every event in insertion order with attendees attached.
func (r *EventRepository) ListEvents(ctx context.Context) ([]persistence.Event, error) {
	rows, err := r.pool.DB().QueryContext(ctx, selectEventColumns+` ORDER BY seq ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	events := make([]persistence.Event, 0)
	index := make(map[string]int)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		event.Attendees = []string{}
		index[event.ID] = len(events)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	if len(events) == 0 {
		return events, nil
	}

	attendeeRows, err := r.pool.DB().QueryContext(ctx, `SELECT event_id, user_id FROM event_attendees ORDER BY seq ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer attendeeRows.Close()

	for attendeeRows.Next() {
		var eventID, userID string
		if err := attendeeRows.Scan(&eventID, &userID); err != nil {
			return nil, mapError(err)
		}
		if i, ok := index[eventID]; ok {
			events[i].Attendees = append(events[i].Attendees, userID)
		}
	}
	if err := attendeeRows.Err(); err != nil {
		return nil, mapError(err)
	}

	return events, nil
}

// UpdateEvent merges the mutable fields into an existing event.
func (r *EventRepository) UpdateEvent(ctx context.Context, id string, patch persistence.EventPatch) error {
	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE events
		SET title = ?, description = ?, event_date = ?, event_time = ?, location = ?, updated_at = ?
		WHERE id = ?
	`,
		patch.Title,
		patch.Description,
		patch.Date,
		patch.Time,
		patch.Location,
		formatTime(patch.UpdatedAt),
		id,
	)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

// DeleteEvent removes an event and its attendee rows.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
		if err != nil {
			return mapError(err)
		}
		if err := requireAffected(result); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM event_attendees WHERE event_id = ?`, id); err != nil {
			return mapError(err)
		}
		return nil
	})
}

// AddAttendee inserts the membership row; the (event_id, user_id) unique key
// makes concurrent joins for the same user collapse into one row.
func (r *EventRepository) AddAttendee(ctx context.Context, eventID, userID string) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := eventExists(ctx, tx, eventID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO event_attendees (event_id, user_id, joined_at) VALUES (?, ?, ?)
			ON CONFLICT (event_id, user_id) DO NOTHING
		`, eventID, userID, formatTime(time.Now()))
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrDuplicate
		}
		return nil
	})
}

// RemoveAttendee deletes the membership row.
func (r *EventRepository) RemoveAttendee(ctx context.Context, eventID, userID string) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := eventExists(ctx, tx, eventID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM event_attendees WHERE event_id = ? AND user_id = ?`, eventID, userID)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotMember
		}
		return nil
	})
}

func (r *EventRepository) attendees(ctx context.Context, eventID string) ([]string, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `SELECT user_id FROM event_attendees WHERE event_id = ? ORDER BY seq ASC`, eventID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	attendees := []string{}
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, mapError(err)
		}
		attendees = append(attendees, userID)
	}
	return attendees, mapError(rows.Err())
}

func eventExists(ctx context.Context, tx *sql.Tx, eventID string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ?`, eventID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}
	return mapError(err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (persistence.Event, error) {
	var (
		event                persistence.Event
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&event.ID,
		&event.CreatorID,
		&event.CreatorName,
		&event.Title,
		&event.Description,
		&event.Location,
		&event.ImageURL,
		&event.Date,
		&event.Time,
		&event.IsAdminEvent,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Event{}, err
	}

	var err error
	if event.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Event{}, err
	}
	if event.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Event{}, err
	}
	return event, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
