package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openpredict/settler/internal/domain"
)

// EventStore implements domain.EventStore using PostgreSQL. Events are an
// append-only journal; the full event is stored as JSONB next to a few
// indexed columns for querying.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a new EventStore backed by the given connection pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Append writes one event to the journal. Replayed events (same ID) are
// silently skipped.
func (s *EventStore) Append(ctx context.Context, ev domain.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("postgres: marshal event %s: %w", ev.ID, err)
	}

	const query = `
		INSERT INTO events (id, type, market_id, at, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`

	_, err = s.pool.Exec(ctx, query,
		ev.ID, string(ev.Type), ev.MarketID, ev.At, payload)
	if err != nil {
		return fmt.Errorf("postgres: append event %s: %w", ev.ID, err)
	}
	return nil
}

// ListByMarket returns the journal for one market in chronological order.
func (s *EventStore) ListByMarket(ctx context.Context, marketID uint64, opts domain.ListOpts) ([]domain.Event, error) {
	query := `SELECT payload FROM events WHERE market_id = $1`
	args := []any{marketID}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	// The journal reads oldest first so replays apply in order.
	query += " ORDER BY at ASC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events by market: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		var ev domain.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list events rows: %w", err)
	}
	return events, nil
}
