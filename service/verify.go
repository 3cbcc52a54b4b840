package service

import (
	"github.com/layer-3/creator-ledger/internal/eth"
)

// VerifyResult is the outcome of re-checking a verification link
type VerifyResult struct {
	Valid   bool   `json:"valid"`
	Address string `json:"address,omitempty"`
	EntryID string `json:"entryId,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// VerifyLink re-runs signature verification over the triple carried by a verification link
func VerifyLink(address, signature, msg, entryID string) VerifyResult {
	result := VerifyResult{EntryID: entryID}

	addr, err := eth.ParseAddress(address)
	if err != nil {
		result.Reason = "invalid address"
		return result
	}
	result.Address = string(addr.Checksummed())

	if msg == "" {
		result.Reason = "missing message"
		return result
	}

	valid, err := eth.Verify(msg, signature, addr.Checksummed())
	if err != nil {
		result.Reason = "malformed signature"
		return result
	}
	if !valid {
		result.Reason = "signature does not match address"
		return result
	}

	result.Valid = true
	return result
}
