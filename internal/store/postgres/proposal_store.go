package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openpredict/settler/internal/domain"
)

// ProposalStore implements domain.ProposalStore using PostgreSQL.
type ProposalStore struct {
	pool *pgxpool.Pool
}

// NewProposalStore creates a new ProposalStore backed by the given connection pool.
func NewProposalStore(pool *pgxpool.Pool) *ProposalStore {
	return &ProposalStore{pool: pool}
}

// Upsert inserts or updates the proposal for a market. A market carries at
// most one proposal, so market_id is the primary key.
func (s *ProposalStore) Upsert(ctx context.Context, p domain.OracleProposal) error {
	const query = `
		INSERT INTO proposals (
			market_id, proposer, result, bond, status,
			proposed_at, challenge_deadline,
			challenger, counter_result, challenger_bond, finalized_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7,
			$8, $9, $10, $11
		)
		ON CONFLICT (market_id) DO UPDATE SET
			proposer           = EXCLUDED.proposer,
			result             = EXCLUDED.result,
			bond               = EXCLUDED.bond,
			status             = EXCLUDED.status,
			proposed_at        = EXCLUDED.proposed_at,
			challenge_deadline = EXCLUDED.challenge_deadline,
			challenger         = EXCLUDED.challenger,
			counter_result     = EXCLUDED.counter_result,
			challenger_bond    = EXCLUDED.challenger_bond,
			finalized_at       = EXCLUDED.finalized_at`

	_, err := s.pool.Exec(ctx, query,
		p.MarketID, p.Proposer, int16(p.Result.Outcome), p.Bond, string(p.Status),
		p.ProposedAt, p.ChallengeDeadline,
		p.Challenger, resultToColumn(p.CounterResult), p.ChallengerBond, p.FinalizedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert proposal %d: %w", p.MarketID, err)
	}
	return nil
}

const proposalCols = `market_id, proposer, result, bond, status,
	proposed_at, challenge_deadline,
	challenger, counter_result, challenger_bond, finalized_at`

func scanProposal(row pgx.Row) (domain.OracleProposal, error) {
	var (
		p       domain.OracleProposal
		result  int16
		counter *int16
		status  string
	)
	err := row.Scan(
		&p.MarketID, &p.Proposer, &result, &p.Bond, &status,
		&p.ProposedAt, &p.ChallengeDeadline,
		&p.Challenger, &counter, &p.ChallengerBond, &p.FinalizedAt,
	)
	if err != nil {
		return domain.OracleProposal{}, err
	}
	p.Result = domain.Result{Outcome: uint8(result)}
	p.CounterResult = columnToResult(counter)
	p.Status = domain.ProposalStatus(status)
	return p, nil
}

// GetByMarket retrieves the proposal for the given market.
func (s *ProposalStore) GetByMarket(ctx context.Context, marketID uint64) (domain.OracleProposal, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+proposalCols+` FROM proposals WHERE market_id = $1`, marketID)
	p, err := scanProposal(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.OracleProposal{}, domain.ErrNotFound
		}
		return domain.OracleProposal{}, fmt.Errorf("postgres: get proposal %d: %w", marketID, err)
	}
	return p, nil
}

// ListByStatus returns proposals in the given lifecycle status, oldest
// deadline first. The projector polls this to find proposals whose challenge
// window has elapsed.
func (s *ProposalStore) ListByStatus(ctx context.Context, status domain.ProposalStatus) ([]domain.OracleProposal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+proposalCols+` FROM proposals WHERE status = $1
		 ORDER BY challenge_deadline ASC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("postgres: list proposals by status: %w", err)
	}
	defer rows.Close()

	var proposals []domain.OracleProposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan proposal: %w", err)
		}
		proposals = append(proposals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list proposals rows: %w", err)
	}
	return proposals, nil
}
