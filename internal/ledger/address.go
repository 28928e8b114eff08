// Package ledger implements the engine's account store: deterministic
// address derivation, fixed-layout records, and an atomic unit-of-work
// transaction over records and token balances.
package ledger

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Address identifies one account record or token mint. It is the last 20
// bytes of a keccak256 hash, matching the identity addresses recovered from
// instruction signatures.
type Address [20]byte

// ZeroAddress is the empty address.
var ZeroAddress Address

// Hex returns the 0x-prefixed lowercase hex encoding.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsZero reports whether the address is the zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// ParseAddress decodes a 0x-prefixed or bare hex address.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	var a Address
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("ledger: parse address: %w", err)
	}
	if len(b) != len(a) {
		return a, fmt.Errorf("ledger: parse address: want %d bytes, got %d", len(a), len(b))
	}
	copy(a[:], b)
	return a, nil
}

// Derivation namespaces. The tuple (namespace, discriminating bytes) fully
// determines every engine-owned address; callers must derive identically or
// their instructions reference accounts the engine will never touch.
const (
	nsRegistry = "registry"
	nsMarket   = "market"
	nsMint     = "mint"
	nsVault    = "vault"
	nsOrder    = "order"
	nsEscrow   = "escrow"
	nsPosition = "position"
	nsProposal = "proposal"
	nsFeePool  = "feepool"
)

// derivePrefix domain-separates engine addresses from raw keccak output.
const derivePrefix = "settler/v1/"

// Derive computes the deterministic address for a namespace and a sequence
// of discriminating byte strings. It is a pure function shared by the
// engine, its tests, and any client constructing instructions.
func Derive(namespace string, parts ...[]byte) Address {
	buf := make([]byte, 0, 64)
	buf = append(buf, []byte(derivePrefix)...)
	buf = append(buf, []byte(namespace)...)
	for _, p := range parts {
		// Length-prefix each part so adjacent parts cannot collide.
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(p)))
		buf = append(buf, p...)
	}
	sum := ethcrypto.Keccak256(buf)

	var a Address
	copy(a[:], sum[len(sum)-len(a):])
	return a
}

// U64 renders v as the 8 little-endian bytes used in address derivation.
func U64(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, v)
}

// U8 renders v as a single derivation byte.
func U8(v uint8) []byte {
	return []byte{v}
}

// RegistryAddress returns the singleton registry address.
func RegistryAddress() Address {
	return Derive(nsRegistry)
}

// FeePoolAddress returns the protocol fee pool address. Match spreads and
// creator fees accrue here.
func FeePoolAddress() Address {
	return Derive(nsFeePool)
}

// MarketAddress returns the address of the market record for id.
func MarketAddress(marketID uint64) Address {
	return Derive(nsMarket, U64(marketID))
}

// MintAddress returns the token mint address for one outcome of a market.
func MintAddress(marketID uint64, outcome uint8) Address {
	return Derive(nsMint, U64(marketID), U8(outcome))
}

// VaultAddress returns the collateral vault address for a market.
func VaultAddress(marketID uint64) Address {
	return Derive(nsVault, U64(marketID))
}

// OrderAddress returns the address of an order record.
func OrderAddress(marketID, orderID uint64) Address {
	return Derive(nsOrder, U64(marketID), U64(orderID))
}

// EscrowAddress returns the address of the escrow record owned by a sell
// order.
func EscrowAddress(marketID, orderID uint64) Address {
	return Derive(nsEscrow, U64(marketID), U64(orderID))
}

// PositionAddress returns the address of the (market, owner) position
// record.
func PositionAddress(marketID uint64, owner Address) Address {
	return Derive(nsPosition, U64(marketID), owner[:])
}

// ProposalAddress returns the address of the oracle proposal record for a
// market.
func ProposalAddress(marketID uint64) Address {
	return Derive(nsProposal, U64(marketID))
}
