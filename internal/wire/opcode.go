// Package wire implements the binary instruction format: a 1-byte opcode
// followed by a little-endian payload. The layout is canonical; clients must
// reproduce it bit-exact or the engine rejects the instruction.
package wire

import "fmt"

// Opcode is the leading instruction byte.
type Opcode uint8

const (
	OpInitialize Opcode = iota
	OpCreateMarket
	OpActivateMarket
	OpPauseMarket
	OpResumeMarket
	OpCancelMarket
	OpFlagMarket
	OpMintCompleteSet
	OpRedeemCompleteSet
	OpPlaceOrder
	OpCancelOrder
	OpMatchMint
	OpMatchBurn
	OpExecuteTrade
	OpProposeResult
	OpChallengeResult
	OpFinalizeResult
	OpClaimWinnings
	OpSetPaused
	OpUpdateAdmin
	OpUpdateOracleAdmin
	OpUpdateOracleConfig
	OpAddAuthorizedCaller
	OpRemoveAuthorizedCaller
	OpCreateMultiOutcomeMarket
	OpMintMultiOutcomeCompleteSet
	OpRedeemMultiOutcomeCompleteSet
	OpPlaceMultiOutcomeOrder
	OpClaimMultiOutcomeWinnings
	OpMatchMintMulti
	OpMatchBurnMulti
	OpProposeMultiOutcomeResult
	OpResolveDispute

	opSentinel // keep last
)

var opcodeNames = [...]string{
	OpInitialize:                    "Initialize",
	OpCreateMarket:                  "CreateMarket",
	OpActivateMarket:                "ActivateMarket",
	OpPauseMarket:                   "PauseMarket",
	OpResumeMarket:                  "ResumeMarket",
	OpCancelMarket:                  "CancelMarket",
	OpFlagMarket:                    "FlagMarket",
	OpMintCompleteSet:               "MintCompleteSet",
	OpRedeemCompleteSet:             "RedeemCompleteSet",
	OpPlaceOrder:                    "PlaceOrder",
	OpCancelOrder:                   "CancelOrder",
	OpMatchMint:                     "MatchMint",
	OpMatchBurn:                     "MatchBurn",
	OpExecuteTrade:                  "ExecuteTrade",
	OpProposeResult:                 "ProposeResult",
	OpChallengeResult:               "ChallengeResult",
	OpFinalizeResult:                "FinalizeResult",
	OpClaimWinnings:                 "ClaimWinnings",
	OpSetPaused:                     "SetPaused",
	OpUpdateAdmin:                   "UpdateAdmin",
	OpUpdateOracleAdmin:             "UpdateOracleAdmin",
	OpUpdateOracleConfig:            "UpdateOracleConfig",
	OpAddAuthorizedCaller:           "AddAuthorizedCaller",
	OpRemoveAuthorizedCaller:        "RemoveAuthorizedCaller",
	OpCreateMultiOutcomeMarket:      "CreateMultiOutcomeMarket",
	OpMintMultiOutcomeCompleteSet:   "MintMultiOutcomeCompleteSet",
	OpRedeemMultiOutcomeCompleteSet: "RedeemMultiOutcomeCompleteSet",
	OpPlaceMultiOutcomeOrder:        "PlaceMultiOutcomeOrder",
	OpClaimMultiOutcomeWinnings:     "ClaimMultiOutcomeWinnings",
	OpMatchMintMulti:                "MatchMintMulti",
	OpMatchBurnMulti:                "MatchBurnMulti",
	OpProposeMultiOutcomeResult:     "ProposeMultiOutcomeResult",
	OpResolveDispute:                "ResolveDispute",
}

// String returns the opcode mnemonic.
func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", uint8(op))
}

// Valid reports whether the opcode is a known instruction.
func (op Opcode) Valid() bool {
	return op < opSentinel
}
