package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/event-board/internal/apperror"
	"github.com/sakif/event-board/internal/model"
)

const eventColumns = `id, title, description, place, time, category, img_url, created_by, created_at`

// ListEvents returns every event matching filter in insertion order.
//
// Title and place matching use lower(), which SQLite only folds for ASCII.
func (db *DB) ListEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	var (
		where []string
		args  []any
	)
	if filter.Title != "" {
		where = append(where, "instr(lower(title), lower(?)) > 0")
		args = append(args, filter.Title)
	}
	if filter.Place != "" {
		where = append(where, "instr(lower(place), lower(?)) > 0")
		args = append(args, filter.Place)
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.TimeFrom != "" {
		where = append(where, "time >= ?")
		args = append(args, filter.TimeFrom)
	}
	if filter.TimeTo != "" {
		where = append(where, "time <= ?")
		args = append(args, filter.TimeTo)
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rowid"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing events: %w", err)
	}

	events := make([]model.Event, 0)
	index := make(map[string]int)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning event row: %w", err)
		}
		index[e.ID] = len(events)
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: iterating events: %w", err)
	}
	// The pool holds a single connection; release it before the next query.
	rows.Close()

	if len(events) == 0 {
		return events, nil
	}

	ids := make([]any, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	attendees, err := db.attendeesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for eventID, list := range attendees {
		events[index[eventID]].Attendees = list
	}

	return events, nil
}

// GetEvent returns the event with its attendees.
func (db *DB) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)

	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("event", id)
		}
		return nil, fmt.Errorf("sqlite: getting event %s: %w", id, err)
	}

	attendees, err := db.attendeesFor(ctx, []any{id})
	if err != nil {
		return nil, err
	}
	if list, ok := attendees[id]; ok {
		e.Attendees = list
	}

	return e, nil
}

// TitleExists reports whether any event uses exactly title.
func (db *DB) TitleExists(ctx context.Context, title string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE title = ?`, title,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking title: %w", err)
	}
	return n > 0, nil
}

// CreateEvent inserts event. ID and CreatedAt are filled in when empty.
func (db *DB) CreateEvent(ctx context.Context, event *model.Event) error {
	if event.ID == "" {
		event.ID = model.NewEventID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.Attendees == nil {
		event.Attendees = []model.Attendee{}
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Title,
		event.Description,
		event.Place,
		event.Time,
		event.Category,
		event.ImgURL,
		event.CreatedBy,
		event.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.DuplicateTitle(event.Title)
		}
		return fmt.Errorf("sqlite: creating event: %w", err)
	}

	for _, a := range event.Attendees {
		if err := db.AddAttendee(ctx, event.ID, a); err != nil {
			return err
		}
	}

	return nil
}

// UpdateEvent applies the set fields of patch.
func (db *DB) UpdateEvent(ctx context.Context, id string, patch model.EventPatch) error {
	var (
		set  []string
		args []any
	)
	add := func(column string, v *string) {
		if v != nil {
			set = append(set, column+" = ?")
			args = append(args, *v)
		}
	}
	add("title", patch.Title)
	add("description", patch.Description)
	add("place", patch.Place)
	add("time", patch.Time)
	add("category", patch.Category)
	add("img_url", patch.ImgURL)

	if len(set) == 0 {
		return apperror.ValidationFailed("", "No changes")
	}
	args = append(args, id)

	result, err := db.conn.ExecContext(ctx,
		`UPDATE events SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		if isUniqueViolation(err) && patch.Title != nil {
			return apperror.DuplicateTitle(*patch.Title)
		}
		return fmt.Errorf("sqlite: updating event %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("event", id)
	}

	return nil
}

// DeleteEvent removes the event; its attendee rows cascade.
func (db *DB) DeleteEvent(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting event %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("event", id)
	}

	return nil
}

// AddAttendee inserts a, or refreshes joined_at for an existing member.
// The (event_id, user_sub) primary key makes duplicates impossible.
func (db *DB) AddAttendee(ctx context.Context, eventID string, a model.Attendee) error {
	if err := db.requireEvent(ctx, eventID); err != nil {
		return err
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO event_attendees (event_id, user_sub, name, email, picture, joined_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (event_id, user_sub) DO UPDATE SET joined_at = excluded.joined_at`,
		eventID,
		a.UserSub,
		a.Name,
		a.Email,
		a.Picture,
		a.JoinedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding attendee to %s: %w", eventID, err)
	}
	return nil
}

// RemoveAttendee deletes the attendee row for userSub, if any.
func (db *DB) RemoveAttendee(ctx context.Context, eventID, userSub string) error {
	if err := db.requireEvent(ctx, eventID); err != nil {
		return err
	}

	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM event_attendees WHERE event_id = ? AND user_sub = ?`,
		eventID, userSub,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing attendee from %s: %w", eventID, err)
	}
	return nil
}

func (db *DB) requireEvent(ctx context.Context, id string) error {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE id = ?`, id,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("sqlite: looking up event %s: %w", id, err)
	}
	if n == 0 {
		return apperror.NotFound("event", id)
	}
	return nil
}

// attendeesFor loads the attendee lists of the given events, keyed by
// event id. Every requested id gets a non-nil (possibly empty) slice.
func (db *DB) attendeesFor(ctx context.Context, eventIDs []any) (map[string][]model.Attendee, error) {
	out := make(map[string][]model.Attendee, len(eventIDs))
	for _, id := range eventIDs {
		out[id.(string)] = []model.Attendee{}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(eventIDs)), ", ")
	rows, err := db.conn.QueryContext(ctx,
		`SELECT event_id, user_sub, name, email, picture, joined_at
		 FROM event_attendees
		 WHERE event_id IN (`+placeholders+`)
		 ORDER BY rowid`,
		eventIDs...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing attendees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			eventID string
			a       model.Attendee
		)
		if err := rows.Scan(&eventID, &a.UserSub, &a.Name, &a.Email, &a.Picture, &a.JoinedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning attendee row: %w", err)
		}
		out[eventID] = append(out[eventID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating attendees: %w", err)
	}

	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*model.Event, error) {
	var e model.Event
	if err := s.Scan(
		&e.ID,
		&e.Title,
		&e.Description,
		&e.Place,
		&e.Time,
		&e.Category,
		&e.ImgURL,
		&e.CreatedBy,
		&e.CreatedAt,
	); err != nil {
		return nil, err
	}
	e.Attendees = []model.Attendee{}
	return &e, nil
}

func isUniqueViolation(err error) bool {
	var se *moderncsqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
