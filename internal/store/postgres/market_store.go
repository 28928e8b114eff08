package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openpredict/settler/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

// Upsert inserts or updates a single market.
func (s *MarketStore) Upsert(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (
			id, creator, question_hash, spec_hash, outcome_count,
			outcome_mints, vault, status, review,
			resolution_time, finalization_deadline, final_result,
			minted_sets, volume, open_interest, creator_fee_bps,
			next_order_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12,
			$13, $14, $15, $16,
			$17, $18, NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			status                = EXCLUDED.status,
			review                = EXCLUDED.review,
			resolution_time       = EXCLUDED.resolution_time,
			finalization_deadline = EXCLUDED.finalization_deadline,
			final_result          = EXCLUDED.final_result,
			minted_sets           = EXCLUDED.minted_sets,
			volume                = EXCLUDED.volume,
			open_interest         = EXCLUDED.open_interest,
			creator_fee_bps       = EXCLUDED.creator_fee_bps,
			next_order_id         = EXCLUDED.next_order_id,
			updated_at            = NOW()`

	_, err := s.pool.Exec(ctx, query,
		m.ID, m.Creator, m.QuestionHash, m.SpecHash, m.OutcomeCount,
		m.OutcomeMints, m.Vault, string(m.Status), string(m.Review),
		m.ResolutionTime, m.FinalizationDeadline, resultToColumn(m.FinalResult),
		m.MintedSets, m.Volume, m.OpenInterest, m.CreatorFeeBps,
		m.NextOrderID, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert market %d: %w", m.ID, err)
	}
	return nil
}

const marketCols = `id, creator, question_hash, spec_hash, outcome_count,
	outcome_mints, vault, status, review,
	resolution_time, finalization_deadline, final_result,
	minted_sets, volume, open_interest, creator_fee_bps,
	next_order_id, created_at, updated_at`

// scanMarket scans a single market row into a domain.Market.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var (
		m      domain.Market
		status string
		review string
		result *int16
	)
	err := row.Scan(
		&m.ID, &m.Creator, &m.QuestionHash, &m.SpecHash, &m.OutcomeCount,
		&m.OutcomeMints, &m.Vault, &status, &review,
		&m.ResolutionTime, &m.FinalizationDeadline, &result,
		&m.MintedSets, &m.Volume, &m.OpenInterest, &m.CreatorFeeBps,
		&m.NextOrderID, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.Status = domain.MarketStatus(status)
	m.Review = domain.ReviewStatus(review)
	m.FinalResult = columnToResult(result)
	return m, nil
}

// resultToColumn maps an optional result to a nullable SMALLINT value.
func resultToColumn(r *domain.Result) *int16 {
	if r == nil {
		return nil
	}
	v := int16(r.Outcome)
	return &v
}

func columnToResult(v *int16) *domain.Result {
	if v == nil {
		return nil
	}
	return &domain.Result{Outcome: uint8(*v)}
}

// GetByID retrieves a market by its primary key.
func (s *MarketStore) GetByID(ctx context.Context, id uint64) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %d: %w", id, err)
	}
	return m, nil
}

// ListByStatus returns markets in the given status with pagination and
// optional creation-time filtering.
func (s *MarketStore) ListByStatus(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets WHERE status = $1`
	args := []any{string(status)}
	query, args = appendListOpts(query, args, "created_at", opts)

	return s.queryMarkets(ctx, query, args, "list markets by status")
}

// List returns all markets with pagination and optional creation-time
// filtering.
func (s *MarketStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets WHERE TRUE`
	args := []any{}
	query, args = appendListOpts(query, args, "created_at", opts)

	return s.queryMarkets(ctx, query, args, "list markets")
}

func (s *MarketStore) queryMarkets(ctx context.Context, query string, args []any, op string) ([]domain.Market, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: %s scan: %w", op, err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: %s rows: %w", op, err)
	}
	return markets, nil
}

// Count returns the total number of markets in the database.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM markets").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}

// appendListOpts extends query with time filters, ordering and pagination
// derived from opts. The time column is compared against opts.Since/Until
// and used for descending ordering. Placeholders continue from len(args)+1.
func appendListOpts(query string, args []any, timeCol string, opts domain.ListOpts) (string, []any) {
	argIdx := len(args) + 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND %s >= $%d", timeCol, argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND %s <= $%d", timeCol, argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY %s DESC", timeCol)

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}
	return query, args
}
