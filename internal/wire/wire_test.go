package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpredict/settler/internal/ledger"
)

func TestOpcodeTableStable(t *testing.T) {
	// The numeric assignments are the on-the-wire contract; renumbering
	// breaks every signed payload in flight.
	assert.Equal(t, Opcode(0), OpInitialize)
	assert.Equal(t, Opcode(1), OpCreateMarket)
	assert.Equal(t, Opcode(32), OpResolveDispute)
	assert.True(t, OpResolveDispute.Valid())
	assert.False(t, Opcode(33).Valid())
	assert.Equal(t, "Initialize", OpInitialize.String())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	addr := ledger.Address{0x01, 0x02, 0x03}
	cases := []Instruction{
		&Initialize{
			CollateralAsset:     addr,
			ChallengeWindowSecs: 86_400,
			ProposerBond:        50_000_000,
			DefaultFeeBps:       150,
		},
		&CreateMarket{
			QuestionHash:         [32]byte{0xAA},
			SpecHash:             [32]byte{0xBB},
			ResolutionTime:       1_755_000_000,
			FinalizationDeadline: 1_755_100_000,
			FeeBps:               200,
			OutcomeCount:         2,
		},
		&CreateMarket{
			QuestionHash:         [32]byte{0xAA},
			ResolutionTime:       1_755_000_000,
			FinalizationDeadline: 1_755_100_000,
			OutcomeCount:         12,
			Multi:                true,
		},
		&CreateMarket{
			ResolutionTime:       1_755_000_000,
			FinalizationDeadline: 1_755_100_000,
			OutcomeCount:         2,
			Multi:                true,
		},
		&ActivateMarket{MarketID: 7},
		&PauseMarket{MarketID: 7},
		&ResumeMarket{MarketID: 7},
		&CancelMarket{MarketID: 7, Reason: "duplicate listing"},
		&FlagMarket{MarketID: 7, Review: 1},
		&MintCompleteSet{MarketID: 7, Amount: 10_000_000},
		&MintCompleteSet{MarketID: 7, Amount: 10_000_000, Multi: true},
		&RedeemCompleteSet{MarketID: 7, Amount: 10_000_000},
		&PlaceOrder{MarketID: 7, Side: 1, OutcomeIndex: 3, Price: 450_000, Amount: 2_000_000, Kind: 0, ExpiresAt: 1_755_050_000, Multi: true},
		&PlaceOrder{MarketID: 7, Price: 450_000, Amount: 2_000_000},
		&CancelOrder{MarketID: 7, OrderID: 3},
		&MatchBinary{MarketID: 7, OrderA: 1, OrderB: 2, Amount: 5_000_000, PriceA: 600_000, PriceB: 400_000, Mint: true},
		&MatchBinary{MarketID: 7, OrderA: 1, OrderB: 2, Amount: 5_000_000, PriceA: 600_000, PriceB: 400_000},
		&MatchMulti{MarketID: 7, OrderIDs: []uint64{1, 2, 3}, Amount: 5_000_000, Prices: []uint64{400_000, 300_000, 300_000}, Mint: true},
		&ExecuteTrade{MarketID: 7, BuyOrderID: 1, SellOrderID: 2, Amount: 5_000_000},
		&ProposeResult{MarketID: 7, Result: 0},
		&ProposeResult{MarketID: 7, Result: 0xFF, Multi: true},
		&ChallengeResult{MarketID: 7, CounterResult: 1},
		&FinalizeResult{MarketID: 7},
		&ResolveDispute{MarketID: 7, ChallengerWins: true},
		&ClaimWinnings{MarketID: 7},
		&ClaimWinnings{MarketID: 7, Multi: true},
		&SetPaused{Paused: true},
		&UpdateAdmin{NewAdmin: addr},
		&UpdateOracleAdmin{NewOracleAdmin: addr},
		&UpdateOracleConfig{ChallengeWindowSecs: 7200, ProposerBond: 1},
		&AddAuthorizedCaller{Caller: addr},
		&RemoveAuthorizedCaller{Caller: addr},
	}

	for _, in := range cases {
		t.Run(in.Op().String(), func(t *testing.T) {
			buf := Encode(in)
			require.NotEmpty(t, buf)
			assert.Equal(t, byte(in.Op()), buf[0])

			out, err := Decode(buf)
			require.NoError(t, err)
			assert.Equal(t, in, out)
		})
	}
}

func TestDecodeRejectsEmpty(t *testing.T) {
	_, err := Decode(nil)
	require.Error(t, err)
}

func TestDecodeRejectsUnknownOpcode(t *testing.T) {
	_, err := Decode([]byte{0xEE, 0x00})
	require.ErrorContains(t, err, "unknown opcode")
}

func TestDecodeRejectsTruncation(t *testing.T) {
	buf := Encode(&MatchBinary{MarketID: 7, OrderA: 1, OrderB: 2, Amount: 5, PriceA: 1, PriceB: 2, Mint: true})
	for n := 1; n < len(buf); n++ {
		_, err := Decode(buf[:n])
		require.Errorf(t, err, "length %d", n)
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	buf := Encode(&ActivateMarket{MarketID: 7})
	_, err := Decode(append(buf, 0x00))
	require.ErrorContains(t, err, "trailing")
}

func TestDecodeRejectsOversizedString(t *testing.T) {
	in := &CancelMarket{MarketID: 7, Reason: string(make([]byte, 2_000))}
	_, err := Decode(Encode(in))
	require.ErrorContains(t, err, "exceeds limit")
}

func TestCreateMarketMultiOpcodeBitExact(t *testing.T) {
	// A two-outcome market created under the multi-outcome opcode must
	// re-encode under the same opcode, byte for byte.
	in := &CreateMarket{
		QuestionHash:         [32]byte{0xAA},
		ResolutionTime:       1_755_000_000,
		FinalizationDeadline: 1_755_100_000,
		OutcomeCount:         2,
		Multi:                true,
	}
	buf := Encode(in)
	assert.Equal(t, byte(OpCreateMultiOutcomeMarket), buf[0])

	out, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, buf, Encode(out))
}

func TestBinaryAndMultiOpcodesDiffer(t *testing.T) {
	bin := Encode(&MintCompleteSet{MarketID: 1, Amount: 1})
	multi := Encode(&MintCompleteSet{MarketID: 1, Amount: 1, Multi: true})
	assert.NotEqual(t, bin[0], multi[0])
	assert.Equal(t, bin[1:], multi[1:])
}
