package domain

import "time"

// ResultInvalid is the reserved outcome value for a market resolved as
// invalid. Every holder of a complete set redeems 1:1 on an invalid market.
const ResultInvalid uint8 = 0xFF

// Result is a proposed or final market result: either a winning outcome
// index or the invalid marker.
type Result struct {
	Outcome uint8
}

// Invalid reports whether the result is the invalid marker.
func (r Result) Invalid() bool {
	return r.Outcome == ResultInvalid
}

// ProposalStatus tracks the optimistic-oracle proposal lifecycle.
type ProposalStatus string

const (
	ProposalStatusPending    ProposalStatus = "pending"
	ProposalStatusChallenged ProposalStatus = "challenged"
	ProposalStatusDisputed   ProposalStatus = "disputed"
	ProposalStatusFinalized  ProposalStatus = "finalized"
)

// OracleProposal is the read-model projection of an on-ledger proposal
// record. One proposal exists per market.
type OracleProposal struct {
	MarketID          uint64
	Proposer          string
	Result            Result
	Bond              uint64
	Status            ProposalStatus
	ProposedAt        time.Time
	ChallengeDeadline time.Time
	Challenger        string
	CounterResult     *Result
	ChallengerBond    uint64
	FinalizedAt       *time.Time
}
