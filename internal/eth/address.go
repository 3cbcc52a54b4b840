package eth

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress is returned when a string is not a 0x-prefixed 20-byte hex address
var ErrInvalidAddress = errors.New("invalid ethereum address")

// Checksummed is the EIP-55 mixed-case form of an address.
// Signature verification only accepts this form.
type Checksummed string

// Address is a parsed wallet address
type Address struct {
	addr common.Address
}

// ParseAddress parses a 0x-prefixed 40 hex character address in any casing
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return Address{}, ErrInvalidAddress
	}
	if !common.IsHexAddress(s) {
		return Address{}, ErrInvalidAddress
	}
	return Address{addr: common.HexToAddress(s)}, nil
}

// MustParseAddress is like ParseAddress but panics on error
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromCommon wraps a go-ethereum address
func AddressFromCommon(a common.Address) Address {
	return Address{addr: a}
}

// Checksummed returns the EIP-55 form
func (a Address) Checksummed() Checksummed {
	return Checksummed(a.addr.Hex())
}

// Normalized returns the lowercase form used as the storage and lookup key
func (a Address) Normalized() string {
	return strings.ToLower(a.addr.Hex())
}

// IsZero reports whether the address is unset
func (a Address) IsZero() bool {
	return a.addr == (common.Address{})
}

// Equal compares two addresses by value
func (a Address) Equal(b Address) bool {
	return a.addr == b.addr
}

// String returns the normalized form
func (a Address) String() string {
	return a.Normalized()
}
