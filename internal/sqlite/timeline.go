package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/curator/internal/domain/collection"
)

// replaceTimeline rewrites the stored timeline of a collection so that a
// re-saved snapshot drops events appended after it.
func replaceTimeline(ctx context.Context, tx *sql.Tx, collectionID string, events []collection.TimelineEvent) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM timeline_events WHERE collection_id = ?`, collectionID); err != nil {
		return fmt.Errorf("failed to clear timeline: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO timeline_events (
			id, collection_id, seq, type, actor_id, summary, from_state, to_state, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare timeline insert: %w", err)
	}
	defer stmt.Close()

	for i, ev := range events {
		_, err := stmt.ExecContext(ctx,
			ev.ID,
			collectionID,
			i,
			ev.Type,
			ev.ActorID,
			ev.Summary,
			nullState(ev.FromState),
			nullState(ev.ToState),
			ev.OccurredAt.UTC(),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("failed to log timeline event %s: duplicate id: %w", ev.ID, err)
			}
			return fmt.Errorf("failed to log timeline event: %w", err)
		}
	}
	return nil
}

// ListTimeline returns timeline events of a collection, newest first
func (r *CollectionRepository) ListTimeline(ctx context.Context, collectionID string, opts collection.TimelineOptions) ([]collection.TimelineEvent, error) {
	query := `
		SELECT id, type, actor_id, summary, from_state, to_state, occurred_at
		FROM timeline_events
		WHERE collection_id = ?
	`

	args := []interface{}{collectionID}

	if opts.Type != "" {
		query += " AND type = ?"
		args = append(args, opts.Type)
	}

	query += " ORDER BY seq DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list timeline: %w", err)
	}
	defer rows.Close()

	events := []collection.TimelineEvent{}
	for rows.Next() {
		var ev collection.TimelineEvent
		var fromState, toState sql.NullString
		if err := rows.Scan(
			&ev.ID,
			&ev.Type,
			&ev.ActorID,
			&ev.Summary,
			&fromState,
			&toState,
			&ev.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan timeline event: %w", err)
		}
		if fromState.Valid {
			s := collection.State(fromState.String)
			ev.FromState = &s
		}
		if toState.Valid {
			s := collection.State(toState.String)
			ev.ToState = &s
		}
		ev.OccurredAt = ev.OccurredAt.UTC()
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating timeline rows: %w", err)
	}

	return events, nil
}

func nullState(s *collection.State) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*s), Valid: true}
}
