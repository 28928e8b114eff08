package engine

import (
	"fmt"

	"github.com/openpredict/settler/internal/domain"
	"github.com/openpredict/settler/internal/ledger"
	"github.com/openpredict/settler/internal/wire"
)

// Optimistic oracle flow: the oracle admin proposes a result and posts a
// bond; anyone may challenge with a matching bond inside the challenge
// window; an unchallenged proposal finalizes permissionlessly after the
// window; a challenged one waits for an admin ruling that forfeits the
// loser's bond to the winner.
//
// Oracle instructions deliberately ignore the registry-wide pause so a
// halted protocol can still wind markets down.

func (e *Engine) proposeResult(u *uow, in *wire.ProposeResult) error {
	reg, err := getRegistry(u)
	if err != nil {
		return err
	}
	if err := requireOracleAdmin(u, reg); err != nil {
		return err
	}
	m, err := getMarket(u, in.MarketID)
	if err != nil {
		return err
	}
	if err := requireBinaryOp(m, in.Multi); err != nil {
		return err
	}
	switch m.Status {
	case ledger.MarketActive, ledger.MarketPaused:
	default:
		return fmt.Errorf("engine: propose on market %d in %d: %w", m.ID, m.Status, domain.ErrInvalidStatusTransition)
	}
	if u.now < m.ResolutionTime {
		return fmt.Errorf("engine: market %d resolves at %d: %w", m.ID, m.ResolutionTime, domain.ErrTooEarly)
	}
	if err := validResult(m, in.Result); err != nil {
		return err
	}
	if rec, ok := u.tx.Get(ledger.ProposalAddress(m.ID)); ok {
		p := rec.(*ledger.Proposal)
		switch p.Status {
		case ledger.ProposalPending, ledger.ProposalChallenged:
			return fmt.Errorf("engine: market %d proposal open: %w", m.ID, domain.ErrProposalPending)
		}
	}

	if reg.ProposerBond > 0 {
		if err := u.ct.Transfer(u.caller, ledger.ProposalAddress(m.ID), reg.ProposerBond); err != nil {
			return err
		}
	}

	p := &ledger.Proposal{
		MarketID:          m.ID,
		Proposer:          u.caller,
		Result:            in.Result,
		Bond:              reg.ProposerBond,
		Status:            ledger.ProposalPending,
		ProposedAt:        u.now,
		ChallengeDeadline: u.now + reg.ChallengeWindow,
	}
	u.tx.Put(ledger.ProposalAddress(m.ID), p)

	u.emit(domain.Event{
		Type:     domain.EventResultProposed,
		MarketID: m.ID,
		Proposal: proposalModel(p),
	})
	return nil
}

// challengeResult is open to anyone willing to post the matching bond.
func (e *Engine) challengeResult(u *uow, in *wire.ChallengeResult) error {
	m, err := getMarket(u, in.MarketID)
	if err != nil {
		return err
	}
	p, err := getProposal(u, in.MarketID)
	if err != nil {
		return err
	}
	if p.Status != ledger.ProposalPending {
		return fmt.Errorf("engine: challenge proposal in %d: %w", p.Status, domain.ErrInvalidStatusTransition)
	}
	if u.now >= p.ChallengeDeadline {
		return fmt.Errorf("engine: challenge window closed at %d: %w", p.ChallengeDeadline, domain.ErrChallengeWindowClosed)
	}
	if err := validResult(m, in.CounterResult); err != nil {
		return err
	}
	if in.CounterResult == p.Result {
		return fmt.Errorf("engine: counter-result equals proposal: %w", domain.ErrInvalidArgument)
	}

	if p.Bond > 0 {
		if err := u.ct.Transfer(u.caller, ledger.ProposalAddress(m.ID), p.Bond); err != nil {
			return err
		}
	}

	p.Status = ledger.ProposalChallenged
	p.Challenger = u.caller
	p.HasCounter = true
	p.CounterResult = in.CounterResult
	p.ChallengerBond = p.Bond
	u.tx.Put(ledger.ProposalAddress(m.ID), p)

	u.emit(domain.Event{
		Type:     domain.EventResultChallenged,
		MarketID: m.ID,
		Proposal: proposalModel(p),
	})
	return nil
}

// finalizeResult settles an unchallenged proposal after the window; any
// caller may crank it. The proposer's bond is returned in full.
func (e *Engine) finalizeResult(u *uow, in *wire.FinalizeResult) error {
	reg, err := getRegistry(u)
	if err != nil {
		return err
	}
	m, err := getMarket(u, in.MarketID)
	if err != nil {
		return err
	}
	p, err := getProposal(u, in.MarketID)
	if err != nil {
		return err
	}
	switch p.Status {
	case ledger.ProposalPending:
	case ledger.ProposalChallenged:
		return fmt.Errorf("engine: market %d awaiting dispute ruling: %w", m.ID, domain.ErrDisputePending)
	default:
		return fmt.Errorf("engine: finalize proposal in %d: %w", p.Status, domain.ErrInvalidStatusTransition)
	}
	if u.now < p.ChallengeDeadline {
		return fmt.Errorf("engine: challenge window open until %d: %w", p.ChallengeDeadline, domain.ErrChallengeWindowOpen)
	}

	if p.Bond > 0 {
		if err := u.ct.Transfer(ledger.ProposalAddress(m.ID), p.Proposer, p.Bond); err != nil {
			return err
		}
	}

	p.Status = ledger.ProposalFinalized
	p.FinalizedAt = u.now
	u.tx.Put(ledger.ProposalAddress(m.ID), p)

	resolveMarket(u, reg, m, p.Result)

	u.emit(domain.Event{
		Type:     domain.EventMarketResolved,
		MarketID: m.ID,
		Market:   marketModel(m),
		Proposal: proposalModel(p),
	})
	return nil
}

// resolveDispute is the oracle admin's ruling on a challenged proposal.
// The winning side's result stands and the loser's bond goes to the winner.
func (e *Engine) resolveDispute(u *uow, in *wire.ResolveDispute) error {
	reg, err := getRegistry(u)
	if err != nil {
		return err
	}
	if err := requireOracleAdmin(u, reg); err != nil {
		return err
	}
	m, err := getMarket(u, in.MarketID)
	if err != nil {
		return err
	}
	p, err := getProposal(u, in.MarketID)
	if err != nil {
		return err
	}
	if p.Status != ledger.ProposalChallenged {
		return fmt.Errorf("engine: resolve proposal in %d: %w", p.Status, domain.ErrInvalidStatusTransition)
	}

	result := p.Result
	winner := p.Proposer
	if in.ChallengerWins {
		result = p.CounterResult
		winner = p.Challenger
	}
	pot := p.Bond + p.ChallengerBond
	if pot > 0 {
		if err := u.ct.Transfer(ledger.ProposalAddress(m.ID), winner, pot); err != nil {
			return err
		}
	}

	p.Status = ledger.ProposalDisputed
	p.FinalizedAt = u.now
	u.tx.Put(ledger.ProposalAddress(m.ID), p)

	resolveMarket(u, reg, m, result)

	u.emit(domain.Event{
		Type:     domain.EventDisputeResolved,
		MarketID: m.ID,
		Market:   marketModel(m),
		Proposal: proposalModel(p),
	})
	return nil
}

// validResult accepts an outcome index inside the market's range or the
// invalid-market sentinel.
func validResult(m *ledger.Market, result uint8) error {
	if result != ledger.ResultInvalid && result >= m.OutcomeCount {
		return fmt.Errorf("engine: result %d of %d outcomes: %w", result, m.OutcomeCount, domain.ErrInvalidArgument)
	}
	return nil
}

// resolveMarket records the final result and flips the market to Resolved.
func resolveMarket(u *uow, reg *ledger.Registry, m *ledger.Market, result uint8) {
	// Paused markets still count toward ActiveMarkets: pause keeps the
	// slot, so leaving either live status releases it.
	if m.Status == ledger.MarketActive || m.Status == ledger.MarketPaused {
		reg.ActiveMarkets--
		u.tx.Put(ledger.RegistryAddress(), reg)
	}
	m.Status = ledger.MarketResolved
	m.HasResult = true
	m.Result = result
	m.UpdatedAt = u.now
	u.tx.Put(ledger.MarketAddress(m.ID), m)
}
