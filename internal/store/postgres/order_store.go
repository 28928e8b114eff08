package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openpredict/settler/internal/domain"
)

// OrderStore implements domain.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates a new OrderStore backed by the given connection pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Upsert inserts or updates a single order. Only fill progress and status
// change after creation; everything else is immutable on the ledger.
func (s *OrderStore) Upsert(ctx context.Context, o domain.Order) error {
	const query = `
		INSERT INTO orders (
			market_id, id, owner, side, outcome_index,
			price_ticks, amount, filled_amount, status, kind,
			expires_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, NOW()
		)
		ON CONFLICT (market_id, id) DO UPDATE SET
			filled_amount = EXCLUDED.filled_amount,
			status        = EXCLUDED.status,
			updated_at    = NOW()`

	_, err := s.pool.Exec(ctx, query,
		o.MarketID, o.ID, o.Owner, string(o.Side), o.OutcomeIndex,
		o.PriceTicks, o.Amount, o.FilledAmount, string(o.Status), string(o.Kind),
		o.ExpiresAt, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert order %d/%d: %w", o.MarketID, o.ID, err)
	}
	return nil
}

const orderCols = `market_id, id, owner, side, outcome_index,
	price_ticks, amount, filled_amount, status, kind,
	expires_at, created_at, updated_at`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o    domain.Order
		side string
		st   string
		kind string
	)
	err := row.Scan(
		&o.MarketID, &o.ID, &o.Owner, &side, &o.OutcomeIndex,
		&o.PriceTicks, &o.Amount, &o.FilledAmount, &st, &kind,
		&o.ExpiresAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	o.Side = domain.OrderSide(side)
	o.Status = domain.OrderStatus(st)
	o.Kind = domain.OrderKind(kind)
	return o, nil
}

func (s *OrderStore) queryOrders(ctx context.Context, query string, args []any, op string) ([]domain.Order, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: %s scan: %w", op, err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: %s rows: %w", op, err)
	}
	return orders, nil
}

// GetByID retrieves a single order by its per-market ID.
func (s *OrderStore) GetByID(ctx context.Context, marketID, orderID uint64) (domain.Order, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+orderCols+` FROM orders WHERE market_id = $1 AND id = $2`,
		marketID, orderID)
	o, err := scanOrder(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Order{}, domain.ErrNotFound
		}
		return domain.Order{}, fmt.Errorf("postgres: get order %d/%d: %w", marketID, orderID, err)
	}
	return o, nil
}

// ListOpen returns all open and partially filled orders for a market, oldest
// first.
func (s *OrderStore) ListOpen(ctx context.Context, marketID uint64) ([]domain.Order, error) {
	query := `SELECT ` + orderCols + ` FROM orders
		WHERE market_id = $1 AND status IN ('open', 'partially_filled')
		ORDER BY id ASC`
	return s.queryOrders(ctx, query, []any{marketID}, "list open orders")
}

// ListByOwner returns orders placed by the given owner across all markets.
func (s *OrderStore) ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]domain.Order, error) {
	query := `SELECT ` + orderCols + ` FROM orders WHERE owner = $1`
	args := []any{owner}
	query, args = appendListOpts(query, args, "created_at", opts)
	return s.queryOrders(ctx, query, args, "list orders by owner")
}

// ListByMarket returns orders in the given market.
func (s *OrderStore) ListByMarket(ctx context.Context, marketID uint64, opts domain.ListOpts) ([]domain.Order, error) {
	query := `SELECT ` + orderCols + ` FROM orders WHERE market_id = $1`
	args := []any{marketID}
	query, args = appendListOpts(query, args, "created_at", opts)
	return s.queryOrders(ctx, query, args, "list orders by market")
}
