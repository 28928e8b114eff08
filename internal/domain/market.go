package domain

import "time"

// PriceScale is the fixed-point scale for prices and collateral amounts.
// A price of 1.0 (certainty) is 1_000_000 ticks; valid limit prices are
// strictly between 0 and PriceScale.
const PriceScale uint64 = 1_000_000

// Outcome count bounds for multi-outcome markets. Binary markets are the
// two-outcome special case.
const (
	MinOutcomes = 2
	MaxOutcomes = 32
)

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusPending   MarketStatus = "pending"
	MarketStatusActive    MarketStatus = "active"
	MarketStatusPaused    MarketStatus = "paused"
	MarketStatusResolved  MarketStatus = "resolved"
	MarketStatusCancelled MarketStatus = "cancelled"
)

// ReviewStatus is an orthogonal moderation flag. Flagging a market never
// changes its trading status.
type ReviewStatus string

const (
	ReviewStatusNone     ReviewStatus = "none"
	ReviewStatusFlagged  ReviewStatus = "flagged"
	ReviewStatusReviewed ReviewStatus = "reviewed"
)

// Market is the read-model projection of an on-ledger market record.
// Addresses are hex-encoded; prices and amounts are fixed-point ticks.
type Market struct {
	ID                   uint64
	Creator              string
	QuestionHash         string // hex keccak256 of the off-chain question text
	SpecHash             string // hex keccak256 of the resolution specification
	OutcomeCount         uint8
	OutcomeMints         []string // one token mint address per outcome
	Vault                string   // collateral vault address
	Status               MarketStatus
	Review               ReviewStatus
	ResolutionTime       time.Time
	FinalizationDeadline time.Time
	FinalResult          *Result
	MintedSets           uint64
	Volume               uint64
	OpenInterest         uint64
	CreatorFeeBps        uint16
	NextOrderID          uint64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Binary reports whether the market has exactly two outcomes.
func (m Market) Binary() bool {
	return m.OutcomeCount == 2
}

// Registry is the read-model projection of the singleton registry record.
type Registry struct {
	Admin             string
	OracleAdmin       string
	CollateralAsset   string
	FeePool           string
	NextMarketID      uint64
	TotalMarkets      uint64
	ActiveMarkets     uint64
	CumulativeVolume  uint64
	TotalMintedSets   uint64
	ChallengeWindow   time.Duration
	ProposerBond      uint64
	Paused            bool
	DefaultFeeBps     uint16
	AuthorizedCallers []string
}
