package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openpredict/settler/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeCols = `id, market_id, order_id, owner, side, outcome_index,
	price_ticks, amount, kind, executed_at`

func scanTradeRows(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var (
			t    domain.Trade
			side string
			kind string
		)
		if err := rows.Scan(
			&t.ID, &t.MarketID, &t.OrderID, &t.Owner, &side, &t.OutcomeIndex,
			&t.PriceTicks, &t.Amount, &kind, &t.ExecutedAt,
		); err != nil {
			return nil, err
		}
		t.Side = domain.OrderSide(side)
		t.Kind = domain.TradeKind(kind)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// InsertBatch inserts multiple trades efficiently using pgx Batch. Replayed
// trades (same ID) are silently skipped via ON CONFLICT DO NOTHING.
func (s *TradeStore) InsertBatch(ctx context.Context, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO trades (
			id, market_id, order_id, owner, side, outcome_index,
			price_ticks, amount, kind, executed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10
		) ON CONFLICT (id) DO NOTHING`

	for _, t := range trades {
		batch.Queue(query,
			t.ID, t.MarketID, t.OrderID, t.Owner, string(t.Side), t.OutcomeIndex,
			t.PriceTicks, t.Amount, string(t.Kind), t.ExecutedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range trades {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert trade batch item %d: %w", i, err)
		}
	}
	return nil
}

// ListByMarket returns trades for a given market with pagination and optional
// time filtering.
func (s *TradeStore) ListByMarket(ctx context.Context, marketID uint64, opts domain.ListOpts) ([]domain.Trade, error) {
	query := `SELECT ` + tradeCols + ` FROM trades WHERE market_id = $1`
	args := []any{marketID}
	query, args = appendListOpts(query, args, "executed_at", opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades by market: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades by market: %w", err)
	}
	return trades, nil
}

// ListByOwner returns trades where the given owner was a leg counterparty,
// with pagination and optional time filtering.
func (s *TradeStore) ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]domain.Trade, error) {
	query := `SELECT ` + tradeCols + ` FROM trades WHERE owner = $1`
	args := []any{owner}
	query, args = appendListOpts(query, args, "executed_at", opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades by owner: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades by owner: %w", err)
	}
	return trades, nil
}
