package ledger

// Record is one fixed-layout account stored in the ledger. Records are
// value-copied in and out of transactions; the clone method keeps staged
// mutations from leaking into committed state.
type Record interface {
	clone() Record
}

// Market lifecycle status, stored as a single byte.
type MarketStatus uint8

const (
	MarketPending MarketStatus = iota
	MarketActive
	MarketPaused
	MarketResolved
	MarketCancelled
)

// Moderation review status, orthogonal to the trading status.
type ReviewStatus uint8

const (
	ReviewNone ReviewStatus = iota
	ReviewFlagged
	ReviewReviewed
)

// Order side, status and kind bytes.
type OrderSide uint8

const (
	SideBuy OrderSide = iota
	SideSell
)

type OrderStatus uint8

const (
	OrderOpen OrderStatus = iota
	OrderPartiallyFilled
	OrderFilled
	OrderCancelled
	OrderExpired
)

type OrderKind uint8

// Only limit orders are accepted today; the market and good-till-date kinds
// are reserved wire values.
const (
	OrderLimit OrderKind = iota
	OrderMarket
	OrderGoodTillDate
)

// Oracle proposal status byte.
type ProposalStatus uint8

const (
	ProposalPending ProposalStatus = iota
	ProposalChallenged
	ProposalDisputed
	ProposalFinalized
)

// ResultInvalid is the reserved result byte for a market resolved invalid.
const ResultInvalid uint8 = 0xFF

// Registry is the global singleton record.
type Registry struct {
	Admin             Address
	OracleAdmin       Address
	CollateralAsset   Address
	NextMarketID      uint64
	TotalMarkets      uint64
	ActiveMarkets     uint64
	CumulativeVolume  uint64
	TotalMintedSets   uint64
	ChallengeWindow   int64 // seconds
	ProposerBond      uint64
	Paused            bool
	DefaultFeeBps     uint16
	AuthorizedCallers map[Address]bool
}

func (r *Registry) clone() Record {
	c := *r
	c.AuthorizedCallers = make(map[Address]bool, len(r.AuthorizedCallers))
	for k, v := range r.AuthorizedCallers {
		c.AuthorizedCallers[k] = v
	}
	return &c
}

// Market is the per-market state record. The conservation invariant ties
// MintedSets, RedeemedSets and ClaimedAmount to the vault balance at all
// times.
type Market struct {
	ID                   uint64
	Creator              Address
	QuestionHash         [32]byte
	SpecHash             [32]byte
	OutcomeCount         uint8
	Status               MarketStatus
	Review               ReviewStatus
	ResolutionTime       int64
	FinalizationDeadline int64
	HasResult            bool
	Result               uint8
	MintedSets           uint64
	RedeemedSets         uint64
	ClaimedAmount        uint64
	Volume               uint64
	OpenInterest         uint64
	CreatorFeeBps        uint16
	NextOrderID          uint64
	CreatedAt            int64
	UpdatedAt            int64
}

func (m *Market) clone() Record {
	c := *m
	return &c
}

// Outstanding returns the number of complete sets still backed by the
// vault.
func (m *Market) Outstanding() uint64 {
	return m.MintedSets - m.RedeemedSets - m.ClaimedAmount
}

// Order is the per-order record. IDs are monotonic per market.
type Order struct {
	ID           uint64
	MarketID     uint64
	Owner        Address
	Side         OrderSide
	OutcomeIndex uint8
	Price        uint64 // ticks, open interval (0, 1e6)
	Amount       uint64
	Filled       uint64
	Status       OrderStatus
	Kind         OrderKind
	ExpiresAt    int64 // unix seconds, 0 = never
	CreatedAt    int64
	UpdatedAt    int64
}

func (o *Order) clone() Record {
	c := *o
	return &c
}

// Unfilled returns the remaining unfilled amount.
func (o *Order) Unfilled() uint64 {
	if o.Filled >= o.Amount {
		return 0
	}
	return o.Amount - o.Filled
}

// Escrow holds the outcome tokens pledged by an open sell order.
type Escrow struct {
	MarketID     uint64
	OrderID      uint64
	Owner        Address
	OutcomeIndex uint8
	Amount       uint64
	CreatedAt    int64
}

func (e *Escrow) clone() Record {
	c := *e
	return &c
}

// Position aggregates one owner's activity in one market.
type Position struct {
	MarketID      uint64
	Owner         Address
	MintedSets    uint64
	RedeemedSets  uint64
	ClaimedAmount uint64
	Volume        uint64
	Claimed       bool
	CreatedAt     int64
	UpdatedAt     int64
}

func (p *Position) clone() Record {
	c := *p
	return &c
}

// Proposal is the optimistic-oracle proposal record, one per market.
type Proposal struct {
	MarketID          uint64
	Proposer          Address
	Result            uint8
	Bond              uint64
	Status            ProposalStatus
	ProposedAt        int64
	ChallengeDeadline int64
	Challenger        Address
	HasCounter        bool
	CounterResult     uint8
	ChallengerBond    uint64
	FinalizedAt       int64
}

func (p *Proposal) clone() Record {
	c := *p
	return &c
}
