package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestSignRecoverRoundTrip(t *testing.T) {
	signer, err := NewSigner(testKeyHex)
	require.NoError(t, err)
	require.False(t, signer.Address().IsZero())

	payload := []byte{0x01, 0x02, 0x03}
	sig, err := signer.Sign(payload)
	require.NoError(t, err)
	require.Len(t, sig, 65)

	addr, err := Recover(payload, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), addr)
}

func TestRecoverEthereumStyleV(t *testing.T) {
	signer, err := NewSigner("0x" + testKeyHex)
	require.NoError(t, err)

	payload := []byte("instruction bytes")
	sig, err := signer.Sign(payload)
	require.NoError(t, err)

	// Clients signing with Ethereum tooling send v in {27,28}.
	sig[64] += 27
	addr, err := Recover(payload, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), addr)
}

func TestRecoverRejectsWrongPayload(t *testing.T) {
	signer, err := NewSigner(testKeyHex)
	require.NoError(t, err)

	sig, err := signer.Sign([]byte("signed payload"))
	require.NoError(t, err)

	addr, err := Recover([]byte("different payload"), sig)
	if err == nil {
		// Recovery over the wrong digest yields some other key's address.
		assert.NotEqual(t, signer.Address(), addr)
	}
}

func TestRecoverRejectsBadLength(t *testing.T) {
	_, err := Recover([]byte("payload"), make([]byte, 64))
	require.Error(t, err)
}

func TestNewSignerRejectsGarbage(t *testing.T) {
	_, err := NewSigner("not-hex")
	require.Error(t, err)
}

func TestDigestDomainSeparated(t *testing.T) {
	assert.NotEqual(t, Digest([]byte("x")), Digest([]byte("y")))
	require.Len(t, Digest(nil), 32)
}
