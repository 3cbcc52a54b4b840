package eth

import (
	"crypto/ecdsa"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mixedCaseKey returns a key whose checksummed address differs from its lowercase form
func mixedCaseKey(t *testing.T) (*ecdsa.PrivateKey, Address) {
	t.Helper()
	for i := 0; i < 100; i++ {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		addr := AddressFromCommon(crypto.PubkeyToAddress(key.PublicKey))
		if string(addr.Checksummed()) != addr.Normalized() {
			return key, addr
		}
	}
	t.Fatal("could not generate a mixed-case address")
	return nil, Address{}
}

func TestVerify_RoundTrip(t *testing.T) {
	key, addr := mixedCaseKey(t)
	message := "Creator Ledger Authentication\n\nWallet: " + addr.Normalized()

	sig, err := SignPersonal(key, message)
	require.NoError(t, err)
	assert.Len(t, sig, 2+2*SignatureLength)

	ok, err := Verify(message, sig, addr.Checksummed())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_AcceptsZeroOneRecoveryID(t *testing.T) {
	key, addr := mixedCaseKey(t)
	message := "hello"

	raw, err := crypto.Sign(PersonalMessageHash(message).Bytes(), key)
	require.NoError(t, err)
	require.Less(t, raw[64], byte(2))

	ok, err := Verify(message, "0x"+hex.EncodeToString(raw), addr.Checksummed())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_TamperedMessage(t *testing.T) {
	key, addr := mixedCaseKey(t)
	message := "Creator Ledger Content Claim\n\nI am claiming authorship of: https://example.com/post"

	sig, err := SignPersonal(key, message)
	require.NoError(t, err)

	tampered := []byte(message)
	tampered[len(tampered)-1] = 'X'

	ok, err := Verify(string(tampered), sig, addr.Checksummed())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_LowercaseClaimedAddressIsRejected(t *testing.T) {
	key, addr := mixedCaseKey(t)
	message := "checksum sensitivity"

	sig, err := SignPersonal(key, message)
	require.NoError(t, err)

	// Same account, wrong representation: the comparison is case-sensitive.
	ok, err := Verify(message, sig, Checksummed(addr.Normalized()))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_OtherSigner(t *testing.T) {
	key, _ := mixedCaseKey(t)
	_, other := mixedCaseKey(t)

	sig, err := SignPersonal(key, "msg")
	require.NoError(t, err)

	ok, err := Verify("msg", sig, other.Checksummed())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_MalformedInputs(t *testing.T) {
	_, addr := mixedCaseKey(t)

	tests := []struct {
		name    string
		sig     string
		claimed Checksummed
	}{
		{"no prefix", strings.Repeat("ab", SignatureLength), addr.Checksummed()},
		{"bad hex", "0x" + strings.Repeat("zz", SignatureLength), addr.Checksummed()},
		{"short", "0x" + strings.Repeat("ab", 10), addr.Checksummed()},
		{"bad address", "0x" + strings.Repeat("ab", SignatureLength), Checksummed("not-an-address")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := Verify("msg", tt.sig, tt.claimed)
			assert.Error(t, err)
			assert.False(t, ok)
		})
	}
}

func TestParseAddress(t *testing.T) {
	_, addr := mixedCaseKey(t)

	parsed, err := ParseAddress(strings.ToUpper(addr.Normalized()[2:]))
	assert.ErrorIs(t, err, ErrInvalidAddress)
	assert.True(t, parsed.IsZero())

	parsed, err = ParseAddress("  " + addr.Normalized() + " ")
	require.NoError(t, err)
	assert.True(t, parsed.Equal(addr))
	assert.Equal(t, addr.Checksummed(), parsed.Checksummed())

	_, err = ParseAddress("0x1234")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}
