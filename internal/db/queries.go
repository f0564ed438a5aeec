package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// RunEvent is a row in run_events.
type RunEvent struct {
	ID        int64
	Branch    string
	Event     string
	StepName  string
	Detail    string
	Failed    bool
	Timestamp string
}

// LogEvent inserts one run event. stepName and detail may be empty.
func (d *DB) LogEvent(ctx context.Context, branch, event, stepName, detail string, failed bool) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO run_events (branch, event, step_name, detail, failed) VALUES ($1, $2, $3, $4, $5)`,
		branch, event, nullableString(stepName), nullableString(detail), failed,
	)
	if err != nil {
		return fmt.Errorf("log run event: %w", err)
	}
	return nil
}

// GetRunHistory returns all events for a branch in insertion order.
func (d *DB) GetRunHistory(ctx context.Context, branch string) ([]RunEvent, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT id, branch, event, COALESCE(step_name, ''), COALESCE(detail, ''), failed, timestamp::text
		 FROM run_events WHERE branch = $1 ORDER BY id`,
		branch,
	)
	if err != nil {
		return nil, fmt.Errorf("get run history: %w", err)
	}
	defer rows.Close()

	var events []RunEvent
	for rows.Next() {
		var e RunEvent
		if err := rows.Scan(&e.ID, &e.Branch, &e.Event, &e.StepName, &e.Detail, &e.Failed, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan run event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// HasFailedEvent reports whether any event of the given kind failed for
// this branch.
func (d *DB) HasFailedEvent(ctx context.Context, branch, event string) (bool, error) {
	var count int
	err := d.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM run_events WHERE branch = $1 AND event = $2 AND failed`,
		branch, event,
	).Scan(&count)
	if err != nil && err != pgx.ErrNoRows {
		return false, fmt.Errorf("check failed event: %w", err)
	}
	return count > 0, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
