package eth

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the length of a secp256k1 recoverable signature (R || S || V)
const SignatureLength = 65

// ErrMalformedSignature is returned when a signature is not 0x-prefixed 65-byte hex
var ErrMalformedSignature = errors.New("malformed signature")

// PersonalMessageHash returns keccak256("\x19Ethereum Signed Message:\n" + len(message) + message)
func PersonalMessageHash(message string) common.Hash {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256Hash([]byte(prefixed))
}

// RecoverPersonal recovers the signer of an EIP-191 personal_sign signature
func RecoverPersonal(message, signature string) (Address, error) {
	sig, err := decodeSignature(signature)
	if err != nil {
		return Address{}, err
	}

	// v can be 0, 1, 27 or 28
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pub, err := crypto.SigToPub(PersonalMessageHash(message).Bytes(), sig)
	if err != nil {
		return Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}

	return AddressFromCommon(crypto.PubkeyToAddress(*pub)), nil
}

// Verify reports whether signature is a personal_sign signature of message by claimed.
// A well-formed signature from a different signer yields false with a nil error.
// The comparison is case-sensitive, so claimed must be the EIP-55 form.
func Verify(message, signature string, claimed Checksummed) (bool, error) {
	if !common.IsHexAddress(string(claimed)) {
		return false, ErrInvalidAddress
	}

	recovered, err := RecoverPersonal(message, signature)
	if err != nil {
		return false, err
	}

	return string(recovered.Checksummed()) == string(claimed), nil
}

// SignPersonal produces a 0x-prefixed personal_sign signature with V in {27, 28}
func SignPersonal(key *ecdsa.PrivateKey, message string) (string, error) {
	sig, err := crypto.Sign(PersonalMessageHash(message).Bytes(), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	sig[64] += 27
	return "0x" + hex.EncodeToString(sig), nil
}

func decodeSignature(signature string) ([]byte, error) {
	if !strings.HasPrefix(signature, "0x") {
		return nil, fmt.Errorf("missing 0x prefix: %w", ErrMalformedSignature)
	}
	sig, err := hex.DecodeString(signature[2:])
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", ErrMalformedSignature)
	}
	if len(sig) != SignatureLength {
		return nil, fmt.Errorf("expected %d bytes, got %d: %w", SignatureLength, len(sig), ErrMalformedSignature)
	}
	return sig, nil
}
