package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/openpredict/settler/internal/ledger"
)

// envelopePrefix domain-separates instruction digests from any other
// secp256k1 signatures a key might produce.
const envelopePrefix = "settler/instruction/v1"

// Digest computes the signing digest for a serialized instruction:
// keccak256(prefix || instruction bytes).
func Digest(instruction []byte) []byte {
	buf := make([]byte, 0, len(envelopePrefix)+len(instruction))
	buf = append(buf, []byte(envelopePrefix)...)
	buf = append(buf, instruction...)
	return ethcrypto.Keccak256(buf)
}

// Signer signs instruction envelopes with a secp256k1 private key.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    ledger.Address
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key.
func NewSigner(privateKeyHex string) (*Signer, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}

	ethAddr := ethcrypto.PubkeyToAddress(pk.PublicKey)
	var addr ledger.Address
	copy(addr[:], ethAddr[:])

	return &Signer{privateKey: pk, address: addr}, nil
}

// Address returns the identity address derived from the signer's key.
func (s *Signer) Address() ledger.Address {
	return s.address
}

// Sign signs a serialized instruction and returns the 65-byte signature
// (r || s || v).
func (s *Signer) Sign(instruction []byte) ([]byte, error) {
	sig, err := ethcrypto.Sign(Digest(instruction), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: signing: %w", err)
	}
	return sig, nil
}

// SignHex signs a serialized instruction and returns the 0x-prefixed hex
// signature.
func (s *Signer) SignHex(instruction []byte) (string, error) {
	sig, err := s.Sign(instruction)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// Recover returns the identity address that signed the instruction. The
// signature must be the 65-byte form produced by Sign.
func Recover(instruction, sig []byte) (ledger.Address, error) {
	var addr ledger.Address
	if len(sig) != 65 {
		return addr, fmt.Errorf("crypto/signer: signature must be 65 bytes, got %d", len(sig))
	}

	// Accept both v in {0,1} and the Ethereum-style {27,28}.
	norm := make([]byte, 65)
	copy(norm, sig)
	if norm[64] >= 27 {
		norm[64] -= 27
	}

	pub, err := ethcrypto.SigToPub(Digest(instruction), norm)
	if err != nil {
		return addr, fmt.Errorf("crypto/signer: recover: %w", err)
	}

	ethAddr := ethcrypto.PubkeyToAddress(*pub)
	copy(addr[:], ethAddr[:])
	return addr, nil
}
