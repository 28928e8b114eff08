package engine

import (
	"encoding/hex"
	"time"

	"github.com/openpredict/settler/internal/domain"
	"github.com/openpredict/settler/internal/ledger"
)

// Conversions from fixed-layout ledger records to the read-model types
// carried by events and persisted by the projector.

func marketStatusModel(s ledger.MarketStatus) domain.MarketStatus {
	switch s {
	case ledger.MarketPending:
		return domain.MarketStatusPending
	case ledger.MarketActive:
		return domain.MarketStatusActive
	case ledger.MarketPaused:
		return domain.MarketStatusPaused
	case ledger.MarketResolved:
		return domain.MarketStatusResolved
	default:
		return domain.MarketStatusCancelled
	}
}

func reviewStatusModel(s ledger.ReviewStatus) domain.ReviewStatus {
	switch s {
	case ledger.ReviewFlagged:
		return domain.ReviewStatusFlagged
	case ledger.ReviewReviewed:
		return domain.ReviewStatusReviewed
	default:
		return domain.ReviewStatusNone
	}
}

func orderStatusModel(s ledger.OrderStatus) domain.OrderStatus {
	switch s {
	case ledger.OrderOpen:
		return domain.OrderStatusOpen
	case ledger.OrderPartiallyFilled:
		return domain.OrderStatusPartiallyFilled
	case ledger.OrderFilled:
		return domain.OrderStatusFilled
	case ledger.OrderExpired:
		return domain.OrderStatusExpired
	default:
		return domain.OrderStatusCancelled
	}
}

func proposalStatusModel(s ledger.ProposalStatus) domain.ProposalStatus {
	switch s {
	case ledger.ProposalChallenged:
		return domain.ProposalStatusChallenged
	case ledger.ProposalDisputed:
		return domain.ProposalStatusDisputed
	case ledger.ProposalFinalized:
		return domain.ProposalStatusFinalized
	default:
		return domain.ProposalStatusPending
	}
}

func marketModel(m *ledger.Market) *domain.Market {
	mints := make([]string, m.OutcomeCount)
	for i := range mints {
		mints[i] = ledger.MintAddress(m.ID, uint8(i)).Hex()
	}

	out := &domain.Market{
		ID:                   m.ID,
		Creator:              m.Creator.Hex(),
		QuestionHash:         "0x" + hex.EncodeToString(m.QuestionHash[:]),
		SpecHash:             "0x" + hex.EncodeToString(m.SpecHash[:]),
		OutcomeCount:         m.OutcomeCount,
		OutcomeMints:         mints,
		Vault:                ledger.VaultAddress(m.ID).Hex(),
		Status:               marketStatusModel(m.Status),
		Review:               reviewStatusModel(m.Review),
		ResolutionTime:       time.Unix(m.ResolutionTime, 0).UTC(),
		FinalizationDeadline: time.Unix(m.FinalizationDeadline, 0).UTC(),
		MintedSets:           m.MintedSets,
		Volume:               m.Volume,
		OpenInterest:         m.OpenInterest,
		CreatorFeeBps:        m.CreatorFeeBps,
		NextOrderID:          m.NextOrderID,
		CreatedAt:            time.Unix(m.CreatedAt, 0).UTC(),
		UpdatedAt:            time.Unix(m.UpdatedAt, 0).UTC(),
	}
	if m.HasResult {
		out.FinalResult = &domain.Result{Outcome: m.Result}
	}
	return out
}

func orderModel(o *ledger.Order) domain.Order {
	side := domain.OrderSideBuy
	if o.Side == ledger.SideSell {
		side = domain.OrderSideSell
	}
	kind := domain.OrderKindLimit
	switch o.Kind {
	case ledger.OrderMarket:
		kind = domain.OrderKindMarket
	case ledger.OrderGoodTillDate:
		kind = domain.OrderKindGTD
	}

	out := domain.Order{
		ID:           o.ID,
		MarketID:     o.MarketID,
		Owner:        o.Owner.Hex(),
		Side:         side,
		OutcomeIndex: o.OutcomeIndex,
		PriceTicks:   o.Price,
		Amount:       o.Amount,
		FilledAmount: o.Filled,
		Status:       orderStatusModel(o.Status),
		Kind:         kind,
		CreatedAt:    time.Unix(o.CreatedAt, 0).UTC(),
		UpdatedAt:    time.Unix(o.UpdatedAt, 0).UTC(),
	}
	if o.ExpiresAt != 0 {
		t := time.Unix(o.ExpiresAt, 0).UTC()
		out.ExpiresAt = &t
	}
	return out
}

func proposalModel(p *ledger.Proposal) *domain.OracleProposal {
	out := &domain.OracleProposal{
		MarketID:          p.MarketID,
		Proposer:          p.Proposer.Hex(),
		Result:            domain.Result{Outcome: p.Result},
		Bond:              p.Bond,
		Status:            proposalStatusModel(p.Status),
		ProposedAt:        time.Unix(p.ProposedAt, 0).UTC(),
		ChallengeDeadline: time.Unix(p.ChallengeDeadline, 0).UTC(),
		ChallengerBond:    p.ChallengerBond,
	}
	if !p.Challenger.IsZero() {
		out.Challenger = p.Challenger.Hex()
	}
	if p.HasCounter {
		out.CounterResult = &domain.Result{Outcome: p.CounterResult}
	}
	if p.FinalizedAt != 0 {
		t := time.Unix(p.FinalizedAt, 0).UTC()
		out.FinalizedAt = &t
	}
	return out
}

func positionModel(p *ledger.Position) *domain.Position {
	return &domain.Position{
		MarketID:      p.MarketID,
		Owner:         p.Owner.Hex(),
		MintedSets:    p.MintedSets,
		RedeemedSets:  p.RedeemedSets,
		ClaimedAmount: p.ClaimedAmount,
		Volume:        p.Volume,
		Claimed:       p.Claimed,
		CreatedAt:     time.Unix(p.CreatedAt, 0).UTC(),
		UpdatedAt:     time.Unix(p.UpdatedAt, 0).UTC(),
	}
}
