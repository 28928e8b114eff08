package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openpredict/settler/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a new PositionStore backed by the given connection pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Upsert inserts or updates a position keyed by (market, owner).
func (s *PositionStore) Upsert(ctx context.Context, p domain.Position) error {
	const query = `
		INSERT INTO positions (
			market_id, owner, minted_sets, redeemed_sets,
			claimed_amount, volume, claimed, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, NOW()
		)
		ON CONFLICT (market_id, owner) DO UPDATE SET
			minted_sets    = EXCLUDED.minted_sets,
			redeemed_sets  = EXCLUDED.redeemed_sets,
			claimed_amount = EXCLUDED.claimed_amount,
			volume         = EXCLUDED.volume,
			claimed        = EXCLUDED.claimed,
			updated_at     = NOW()`

	_, err := s.pool.Exec(ctx, query,
		p.MarketID, p.Owner, p.MintedSets, p.RedeemedSets,
		p.ClaimedAmount, p.Volume, p.Claimed, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert position %d/%s: %w", p.MarketID, p.Owner, err)
	}
	return nil
}

const positionCols = `market_id, owner, minted_sets, redeemed_sets,
	claimed_amount, volume, claimed, created_at, updated_at`

func scanPosition(row pgx.Row) (domain.Position, error) {
	var p domain.Position
	err := row.Scan(
		&p.MarketID, &p.Owner, &p.MintedSets, &p.RedeemedSets,
		&p.ClaimedAmount, &p.Volume, &p.Claimed, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.Position{}, err
	}
	return p, nil
}

func (s *PositionStore) queryPositions(ctx context.Context, query string, args []any, op string) ([]domain.Position, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: %s scan: %w", op, err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: %s rows: %w", op, err)
	}
	return positions, nil
}

// Get retrieves the position for one owner in one market.
func (s *PositionStore) Get(ctx context.Context, marketID uint64, owner string) (domain.Position, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+positionCols+` FROM positions WHERE market_id = $1 AND owner = $2`,
		marketID, owner)
	p, err := scanPosition(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %d/%s: %w", marketID, owner, err)
	}
	return p, nil
}

// ListByOwner returns all positions held by the given owner.
func (s *PositionStore) ListByOwner(ctx context.Context, owner string) ([]domain.Position, error) {
	query := `SELECT ` + positionCols + ` FROM positions
		WHERE owner = $1 ORDER BY market_id ASC`
	return s.queryPositions(ctx, query, []any{owner}, "list positions by owner")
}

// ListByMarket returns all positions in the given market.
func (s *PositionStore) ListByMarket(ctx context.Context, marketID uint64) ([]domain.Position, error) {
	query := `SELECT ` + positionCols + ` FROM positions
		WHERE market_id = $1 ORDER BY owner ASC`
	return s.queryPositions(ctx, query, []any{marketID}, "list positions by market")
}
