package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openpredict/settler/internal/domain"
)

// report is the JSON document uploaded for each settled market. It captures
// the final state of the market together with every position and the oracle
// proposal that produced the result.
type report struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Market      domain.Market          `json:"market"`
	Proposal    *domain.OracleProposal `json:"proposal,omitempty"`
	Positions   []domain.Position      `json:"positions"`
	TradeCount  int                    `json:"trade_count"`
	TradesPath  string                 `json:"trades_path,omitempty"`
}

// ArchiveImpl implements domain.Archiver by querying the read-model stores
// for a settled market, serializing a settlement report, and uploading it
// to S3. Trades are uploaded separately as JSONL next to the report.
//
// Deletion of the archived records from the primary store is intentionally
// NOT performed here -- that is a separate, explicit step to be executed
// after the archive has been verified.
type ArchiveImpl struct {
	writer    domain.BlobWriter
	markets   domain.MarketStore
	trades    domain.TradeStore
	positions domain.PositionStore
	proposals domain.ProposalStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(
	writer domain.BlobWriter,
	markets domain.MarketStore,
	trades domain.TradeStore,
	positions domain.PositionStore,
	proposals domain.ProposalStore,
) *ArchiveImpl {
	return &ArchiveImpl{
		writer:    writer,
		markets:   markets,
		trades:    trades,
		positions: positions,
		proposals: proposals,
	}
}

// ArchiveMarket builds the settlement report for one market and uploads it.
// The market must be resolved or cancelled; archiving an open market would
// snapshot numbers that are still moving. Returns the report's object key.
func (a *ArchiveImpl) ArchiveMarket(ctx context.Context, marketID uint64) (string, error) {
	market, err := a.markets.GetByID(ctx, marketID)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive market %d: %w", marketID, err)
	}
	if market.Status != domain.MarketStatusResolved && market.Status != domain.MarketStatusCancelled {
		return "", fmt.Errorf("s3blob: archive market %d: status %s: %w",
			marketID, market.Status, domain.ErrMarketNotResolved)
	}

	positions, err := a.positions.ListByMarket(ctx, marketID)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive market %d positions: %w", marketID, err)
	}

	trades, err := a.trades.ListByMarket(ctx, marketID, domain.ListOpts{})
	if err != nil {
		return "", fmt.Errorf("s3blob: archive market %d trades: %w", marketID, err)
	}

	rep := report{
		GeneratedAt: time.Now().UTC(),
		Market:      market,
		Positions:   positions,
		TradeCount:  len(trades),
	}

	// Cancelled markets never saw a proposal; a missing one is fine.
	proposal, err := a.proposals.GetByMarket(ctx, marketID)
	switch {
	case err == nil:
		rep.Proposal = &proposal
	case errors.Is(err, domain.ErrNotFound):
	default:
		return "", fmt.Errorf("s3blob: archive market %d proposal: %w", marketID, err)
	}

	if len(trades) > 0 {
		tradesPath := archivePath(marketID, "trades.jsonl")
		buf, err := marshalJSONL(trades)
		if err != nil {
			return "", fmt.Errorf("s3blob: archive market %d trades marshal: %w", marketID, err)
		}
		if err := a.writer.Put(ctx, tradesPath, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
			return "", fmt.Errorf("s3blob: archive market %d trades upload: %w", marketID, err)
		}
		rep.TradesPath = tradesPath
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("s3blob: archive market %d marshal: %w", marketID, err)
	}

	path := archivePath(marketID, "report.json")
	if err := a.writer.Put(ctx, path, bytes.NewReader(data), "application/json"); err != nil {
		return "", fmt.Errorf("s3blob: archive market %d upload: %w", marketID, err)
	}

	return path, nil
}

// archivePath builds the S3 key for a settlement artifact.
//
//	reports/market-42/report.json
//	reports/market-42/trades.jsonl
func archivePath(marketID uint64, name string) string {
	return fmt.Sprintf("reports/market-%d/%s", marketID, name)
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
