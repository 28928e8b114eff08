package wire

import (
	"fmt"

	"github.com/openpredict/settler/internal/ledger"
)

// Instruction is one decoded engine instruction.
type Instruction interface {
	Op() Opcode
	encode(e *encoder)
}

// Encode serializes an instruction as opcode byte + little-endian payload.
func Encode(in Instruction) []byte {
	e := newEncoder(in.Op())
	in.encode(e)
	return e.buf
}

// Decode parses a serialized instruction. It rejects unknown opcodes,
// truncated payloads, and trailing bytes.
func Decode(buf []byte) (Instruction, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("wire: empty instruction")
	}
	op := Opcode(buf[0])
	if !op.Valid() {
		return nil, fmt.Errorf("wire: unknown opcode %d", buf[0])
	}

	d := newDecoder(buf[1:])
	var in Instruction
	switch op {
	case OpInitialize:
		in = decodeInitialize(d)
	case OpCreateMarket:
		in = decodeCreateMarket(d, false)
	case OpCreateMultiOutcomeMarket:
		in = decodeCreateMarket(d, true)
	case OpActivateMarket:
		in = &ActivateMarket{MarketID: d.u64("market_id")}
	case OpPauseMarket:
		in = &PauseMarket{MarketID: d.u64("market_id")}
	case OpResumeMarket:
		in = &ResumeMarket{MarketID: d.u64("market_id")}
	case OpCancelMarket:
		in = &CancelMarket{MarketID: d.u64("market_id"), Reason: d.str("reason")}
	case OpFlagMarket:
		in = &FlagMarket{MarketID: d.u64("market_id"), Review: d.u8("review")}
	case OpMintCompleteSet:
		in = &MintCompleteSet{MarketID: d.u64("market_id"), Amount: d.u64("amount")}
	case OpMintMultiOutcomeCompleteSet:
		in = &MintCompleteSet{MarketID: d.u64("market_id"), Amount: d.u64("amount"), Multi: true}
	case OpRedeemCompleteSet:
		in = &RedeemCompleteSet{MarketID: d.u64("market_id"), Amount: d.u64("amount")}
	case OpRedeemMultiOutcomeCompleteSet:
		in = &RedeemCompleteSet{MarketID: d.u64("market_id"), Amount: d.u64("amount"), Multi: true}
	case OpPlaceOrder:
		in = decodePlaceOrder(d, false)
	case OpPlaceMultiOutcomeOrder:
		in = decodePlaceOrder(d, true)
	case OpCancelOrder:
		in = &CancelOrder{MarketID: d.u64("market_id"), OrderID: d.u64("order_id")}
	case OpMatchMint:
		in = decodeMatchBinary(d, true)
	case OpMatchBurn:
		in = decodeMatchBinary(d, false)
	case OpMatchMintMulti:
		in = decodeMatchMulti(d, true)
	case OpMatchBurnMulti:
		in = decodeMatchMulti(d, false)
	case OpExecuteTrade:
		in = &ExecuteTrade{
			MarketID:    d.u64("market_id"),
			BuyOrderID:  d.u64("buy_order_id"),
			SellOrderID: d.u64("sell_order_id"),
			Amount:      d.u64("amount"),
		}
	case OpProposeResult:
		in = &ProposeResult{MarketID: d.u64("market_id"), Result: d.u8("result")}
	case OpProposeMultiOutcomeResult:
		in = &ProposeResult{MarketID: d.u64("market_id"), Result: d.u8("result"), Multi: true}
	case OpChallengeResult:
		in = &ChallengeResult{MarketID: d.u64("market_id"), CounterResult: d.u8("counter_result")}
	case OpFinalizeResult:
		in = &FinalizeResult{MarketID: d.u64("market_id")}
	case OpResolveDispute:
		in = &ResolveDispute{MarketID: d.u64("market_id"), ChallengerWins: d.bool("challenger_wins")}
	case OpClaimWinnings:
		in = &ClaimWinnings{MarketID: d.u64("market_id")}
	case OpClaimMultiOutcomeWinnings:
		in = &ClaimWinnings{MarketID: d.u64("market_id"), Multi: true}
	case OpSetPaused:
		in = &SetPaused{Paused: d.bool("paused")}
	case OpUpdateAdmin:
		in = &UpdateAdmin{NewAdmin: d.addr("new_admin")}
	case OpUpdateOracleAdmin:
		in = &UpdateOracleAdmin{NewOracleAdmin: d.addr("new_oracle_admin")}
	case OpUpdateOracleConfig:
		in = &UpdateOracleConfig{
			ChallengeWindowSecs: d.i64("challenge_window_secs"),
			ProposerBond:        d.u64("proposer_bond"),
		}
	case OpAddAuthorizedCaller:
		in = &AddAuthorizedCaller{Caller: d.addr("caller")}
	case OpRemoveAuthorizedCaller:
		in = &RemoveAuthorizedCaller{Caller: d.addr("caller")}
	default:
		return nil, fmt.Errorf("wire: unhandled opcode %s", op)
	}

	if err := d.finish(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return in, nil
}

// Initialize creates the registry singleton.
type Initialize struct {
	CollateralAsset     ledger.Address
	ChallengeWindowSecs int64
	ProposerBond        uint64
	DefaultFeeBps       uint16
}

func (*Initialize) Op() Opcode { return OpInitialize }

func (in *Initialize) encode(e *encoder) {
	e.addr(in.CollateralAsset)
	e.i64(in.ChallengeWindowSecs)
	e.u64(in.ProposerBond)
	e.u16(in.DefaultFeeBps)
}

func decodeInitialize(d *decoder) *Initialize {
	return &Initialize{
		CollateralAsset:     d.addr("collateral_asset"),
		ChallengeWindowSecs: d.i64("challenge_window_secs"),
		ProposerBond:        d.u64("proposer_bond"),
		DefaultFeeBps:       d.u16("default_fee_bps"),
	}
}

// CreateMarket creates a market. OutcomeCount is fixed to 2 on the binary
// opcode and carried on the wire for the multi-outcome opcode; the opcode
// choice follows Multi so a multi-outcome payload with two outcomes
// re-encodes byte for byte.
type CreateMarket struct {
	QuestionHash         [32]byte
	SpecHash             [32]byte
	ResolutionTime       int64
	FinalizationDeadline int64
	FeeBps               uint16
	OutcomeCount         uint8
	Multi                bool
}

func (in *CreateMarket) Op() Opcode {
	if in.Multi {
		return OpCreateMultiOutcomeMarket
	}
	return OpCreateMarket
}

func (in *CreateMarket) encode(e *encoder) {
	e.hash(in.QuestionHash)
	e.hash(in.SpecHash)
	e.i64(in.ResolutionTime)
	e.i64(in.FinalizationDeadline)
	e.u16(in.FeeBps)
	if in.Multi {
		e.u8(in.OutcomeCount)
	}
}

func decodeCreateMarket(d *decoder, multi bool) *CreateMarket {
	in := &CreateMarket{
		QuestionHash:         d.hash("question_hash"),
		SpecHash:             d.hash("spec_hash"),
		ResolutionTime:       d.i64("resolution_time"),
		FinalizationDeadline: d.i64("finalization_deadline"),
		FeeBps:               d.u16("fee_bps"),
		Multi:                multi,
	}
	if multi {
		in.OutcomeCount = d.u8("outcome_count")
	} else {
		in.OutcomeCount = 2
	}
	return in
}

// ActivateMarket moves a Pending market to Active.
type ActivateMarket struct {
	MarketID uint64
}

func (*ActivateMarket) Op() Opcode { return OpActivateMarket }
func (in *ActivateMarket) encode(e *encoder) { e.u64(in.MarketID) }

// PauseMarket moves an Active market to Paused.
type PauseMarket struct {
	MarketID uint64
}

func (*PauseMarket) Op() Opcode { return OpPauseMarket }
func (in *PauseMarket) encode(e *encoder) { e.u64(in.MarketID) }

// ResumeMarket moves a Paused market back to Active.
type ResumeMarket struct {
	MarketID uint64
}

func (*ResumeMarket) Op() Opcode { return OpResumeMarket }
func (in *ResumeMarket) encode(e *encoder) { e.u64(in.MarketID) }

// CancelMarket cancels a pre-Resolved market, unlocking 1:1 refunds.
type CancelMarket struct {
	MarketID uint64
	Reason   string
}

func (*CancelMarket) Op() Opcode { return OpCancelMarket }

func (in *CancelMarket) encode(e *encoder) {
	e.u64(in.MarketID)
	e.str(in.Reason)
}

// FlagMarket sets the moderation review flag.
type FlagMarket struct {
	MarketID uint64
	Review   uint8
}

func (*FlagMarket) Op() Opcode { return OpFlagMarket }

func (in *FlagMarket) encode(e *encoder) {
	e.u64(in.MarketID)
	e.u8(in.Review)
}

// MintCompleteSet converts collateral into one unit of every outcome token.
type MintCompleteSet struct {
	MarketID uint64
	Amount   uint64
	Multi    bool // encoded under the multi-outcome opcode
}

func (in *MintCompleteSet) Op() Opcode {
	if in.Multi {
		return OpMintMultiOutcomeCompleteSet
	}
	return OpMintCompleteSet
}

func (in *MintCompleteSet) encode(e *encoder) {
	e.u64(in.MarketID)
	e.u64(in.Amount)
}

// RedeemCompleteSet is the inverse of MintCompleteSet.
type RedeemCompleteSet struct {
	MarketID uint64
	Amount   uint64
	Multi    bool
}

func (in *RedeemCompleteSet) Op() Opcode {
	if in.Multi {
		return OpRedeemMultiOutcomeCompleteSet
	}
	return OpRedeemCompleteSet
}

func (in *RedeemCompleteSet) encode(e *encoder) {
	e.u64(in.MarketID)
	e.u64(in.Amount)
}

// PlaceOrder opens a limit order. Sell orders move Amount tokens of the
// outcome into a fresh escrow.
type PlaceOrder struct {
	MarketID     uint64
	Side         uint8
	OutcomeIndex uint8
	Price        uint64
	Amount       uint64
	Kind         uint8
	ExpiresAt    int64 // unix seconds, 0 = never
	Multi        bool
}

func (in *PlaceOrder) Op() Opcode {
	if in.Multi {
		return OpPlaceMultiOutcomeOrder
	}
	return OpPlaceOrder
}

func (in *PlaceOrder) encode(e *encoder) {
	e.u64(in.MarketID)
	e.u8(in.Side)
	e.u8(in.OutcomeIndex)
	e.u64(in.Price)
	e.u64(in.Amount)
	e.u8(in.Kind)
	e.i64(in.ExpiresAt)
}

func decodePlaceOrder(d *decoder, multi bool) *PlaceOrder {
	return &PlaceOrder{
		MarketID:     d.u64("market_id"),
		Side:         d.u8("side"),
		OutcomeIndex: d.u8("outcome_index"),
		Price:        d.u64("price"),
		Amount:       d.u64("amount"),
		Kind:         d.u8("kind"),
		ExpiresAt:    d.i64("expires_at"),
		Multi:        multi,
	}
}

// CancelOrder cancels an open order and releases its escrow.
type CancelOrder struct {
	MarketID uint64
	OrderID  uint64
}

func (*CancelOrder) Op() Opcode { return OpCancelOrder }

func (in *CancelOrder) encode(e *encoder) {
	e.u64(in.MarketID)
	e.u64(in.OrderID)
}

// MatchBinary combines two complementary binary orders: a mint pairs two
// buys (Σ prices ≤ 1.0), a burn pairs two sells (Σ prices ≥ 1.0). Leg A is
// the YES leg, leg B the NO leg.
type MatchBinary struct {
	MarketID uint64
	OrderA   uint64
	OrderB   uint64
	Amount   uint64
	PriceA   uint64
	PriceB   uint64
	Mint     bool
}

func (in *MatchBinary) Op() Opcode {
	if in.Mint {
		return OpMatchMint
	}
	return OpMatchBurn
}

func (in *MatchBinary) encode(e *encoder) {
	e.u64(in.MarketID)
	e.u64(in.OrderA)
	e.u64(in.OrderB)
	e.u64(in.Amount)
	e.u64(in.PriceA)
	e.u64(in.PriceB)
}

func decodeMatchBinary(d *decoder, mint bool) *MatchBinary {
	return &MatchBinary{
		MarketID: d.u64("market_id"),
		OrderA:   d.u64("order_a"),
		OrderB:   d.u64("order_b"),
		Amount:   d.u64("amount"),
		PriceA:   d.u64("price_a"),
		PriceB:   d.u64("price_b"),
		Mint:     mint,
	}
}

// MatchMulti generalizes MatchBinary to one leg per distinct outcome.
// OrderIDs and Prices are parallel arrays; every leg fills Amount.
type MatchMulti struct {
	MarketID uint64
	OrderIDs []uint64
	Amount   uint64
	Prices   []uint64
	Mint     bool
}

func (in *MatchMulti) Op() Opcode {
	if in.Mint {
		return OpMatchMintMulti
	}
	return OpMatchBurnMulti
}

func (in *MatchMulti) encode(e *encoder) {
	e.u64(in.MarketID)
	e.u64s(in.OrderIDs)
	e.u64(in.Amount)
	e.u64s(in.Prices)
}

func decodeMatchMulti(d *decoder, mint bool) *MatchMulti {
	return &MatchMulti{
		MarketID: d.u64("market_id"),
		OrderIDs: d.u64s("order_ids"),
		Amount:   d.u64("amount"),
		Prices:   d.u64s("prices"),
		Mint:     mint,
	}
}

// ExecuteTrade crosses one buy and one sell order on the same outcome at
// the resting sell order's price.
type ExecuteTrade struct {
	MarketID    uint64
	BuyOrderID  uint64
	SellOrderID uint64
	Amount      uint64
}

func (*ExecuteTrade) Op() Opcode { return OpExecuteTrade }

func (in *ExecuteTrade) encode(e *encoder) {
	e.u64(in.MarketID)
	e.u64(in.BuyOrderID)
	e.u64(in.SellOrderID)
	e.u64(in.Amount)
}

// ProposeResult posts a bonded outcome proposal.
type ProposeResult struct {
	MarketID uint64
	Result   uint8 // winning outcome index, or 0xFF for invalid
	Multi    bool
}

func (in *ProposeResult) Op() Opcode {
	if in.Multi {
		return OpProposeMultiOutcomeResult
	}
	return OpProposeResult
}

func (in *ProposeResult) encode(e *encoder) {
	e.u64(in.MarketID)
	e.u8(in.Result)
}

// ChallengeResult disputes a pending proposal with a bonded counter-result.
type ChallengeResult struct {
	MarketID      uint64
	CounterResult uint8
}

func (*ChallengeResult) Op() Opcode { return OpChallengeResult }

func (in *ChallengeResult) encode(e *encoder) {
	e.u64(in.MarketID)
	e.u8(in.CounterResult)
}

// FinalizeResult finalizes an unchallenged proposal after its window.
type FinalizeResult struct {
	MarketID uint64
}

func (*FinalizeResult) Op() Opcode { return OpFinalizeResult }
func (in *FinalizeResult) encode(e *encoder) { e.u64(in.MarketID) }

// ResolveDispute settles a challenged proposal: the oracle admin picks the
// winning side, the loser's bond is forfeited to the winner.
type ResolveDispute struct {
	MarketID       uint64
	ChallengerWins bool
}

func (*ResolveDispute) Op() Opcode { return OpResolveDispute }

func (in *ResolveDispute) encode(e *encoder) {
	e.u64(in.MarketID)
	e.bool(in.ChallengerWins)
}

// ClaimWinnings pays out the caller's winning-outcome balance.
type ClaimWinnings struct {
	MarketID uint64
	Multi    bool
}

func (in *ClaimWinnings) Op() Opcode {
	if in.Multi {
		return OpClaimMultiOutcomeWinnings
	}
	return OpClaimWinnings
}

func (in *ClaimWinnings) encode(e *encoder) { e.u64(in.MarketID) }

// SetPaused toggles the registry-wide trading pause.
type SetPaused struct {
	Paused bool
}

func (*SetPaused) Op() Opcode { return OpSetPaused }
func (in *SetPaused) encode(e *encoder) { e.bool(in.Paused) }

// UpdateAdmin rotates the registry admin identity.
type UpdateAdmin struct {
	NewAdmin ledger.Address
}

func (*UpdateAdmin) Op() Opcode { return OpUpdateAdmin }
func (in *UpdateAdmin) encode(e *encoder) { e.addr(in.NewAdmin) }

// UpdateOracleAdmin rotates the oracle admin identity.
type UpdateOracleAdmin struct {
	NewOracleAdmin ledger.Address
}

func (*UpdateOracleAdmin) Op() Opcode { return OpUpdateOracleAdmin }
func (in *UpdateOracleAdmin) encode(e *encoder) { e.addr(in.NewOracleAdmin) }

// UpdateOracleConfig adjusts the challenge window and proposer bond.
type UpdateOracleConfig struct {
	ChallengeWindowSecs int64
	ProposerBond        uint64
}

func (*UpdateOracleConfig) Op() Opcode { return OpUpdateOracleConfig }

func (in *UpdateOracleConfig) encode(e *encoder) {
	e.i64(in.ChallengeWindowSecs)
	e.u64(in.ProposerBond)
}

// AddAuthorizedCaller registers an identity allowed to submit match
// instructions.
type AddAuthorizedCaller struct {
	Caller ledger.Address
}

func (*AddAuthorizedCaller) Op() Opcode { return OpAddAuthorizedCaller }
func (in *AddAuthorizedCaller) encode(e *encoder) { e.addr(in.Caller) }

// RemoveAuthorizedCaller revokes a previously registered identity.
type RemoveAuthorizedCaller struct {
	Caller ledger.Address
}

func (*RemoveAuthorizedCaller) Op() Opcode { return OpRemoveAuthorizedCaller }
func (in *RemoveAuthorizedCaller) encode(e *encoder) { e.addr(in.Caller) }
