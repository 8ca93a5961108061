package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sandevgo/modbot/internal/core"
)

// EventsRepo persists the audit trail of mod command invocations.
type EventsRepo struct {
	db *sql.DB
}

var _ core.EventsRepository = (*EventsRepo)(nil)

func NewEventsRepo(db *sql.DB) *EventsRepo {
	return &EventsRepo{db: db}
}

func (r *EventsRepo) AddEvent(ctx context.Context, event core.ModEvent) error {
	query := `INSERT INTO mod_events (invocation_id, verb, mod_id, target, outcome, detail) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		event.InvocationID, event.Verb, event.ModID, event.Target, event.Outcome, event.Detail)
	if err != nil {
		return fmt.Errorf("failed to insert mod event: %w", err)
	}
	return nil
}

// RecentEvents returns the newest events first.
func (r *EventsRepo) RecentEvents(ctx context.Context, limit int) ([]core.ModEvent, error) {
	query := `SELECT id, invocation_id, verb, mod_id, target, outcome, detail, created_at
		FROM mod_events ORDER BY id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query mod events: %w", err)
	}
	defer rows.Close()

	var events []core.ModEvent
	for rows.Next() {
		var ev core.ModEvent
		var detail sql.NullString

		if err := rows.Scan(&ev.ID, &ev.InvocationID, &ev.Verb, &ev.ModID, &ev.Target, &ev.Outcome, &detail, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan mod event: %w", err)
		}
		ev.Detail = detail.String

		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
