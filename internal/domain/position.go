package domain

import "time"

// Position aggregates a single owner's activity in one market. It is created
// lazily on the first mint or order and updated on every mint, redeem, match
// and claim.
type Position struct {
	MarketID      uint64
	Owner         string
	MintedSets    uint64
	RedeemedSets  uint64
	ClaimedAmount uint64
	Volume        uint64 // cumulative traded notional, fixed-point units
	Claimed       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
