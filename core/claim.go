package core

import "time"

// ClaimStatus is the review state of a claim
type ClaimStatus string

const (
	StatusUnverified ClaimStatus = "unverified"
	StatusVerified   ClaimStatus = "verified"
	StatusRejected   ClaimStatus = "rejected"
)

// Valid reports whether s is a known status
func (s ClaimStatus) Valid() bool {
	switch s {
	case StatusUnverified, StatusVerified, StatusRejected:
		return true
	}
	return false
}

// Claim is a wallet's assertion of authorship over a URL
type Claim struct {
	ID            string
	WalletAddress string // Lowercase owner address
	URL           string
	Title         string
	ContentHash   string // Normalized URL digest, advisory
	Signature     string // Optional provenance signature
	Message       string // Message the signature covers
	Status        ClaimStatus
	ReviewedBy    string
	ReviewedAt    *time.Time
	CreatedAt     time.Time

	Endorsements int
	Disputes     int
}

// Vote is the kind of an endorsement
type Vote string

const (
	VoteEndorse Vote = "endorse"
	VoteDispute Vote = "dispute"
)

// Valid reports whether v is a known vote
func (v Vote) Valid() bool {
	return v == VoteEndorse || v == VoteDispute
}

// Endorsement is a signed vote by one wallet on another wallet's claim
type Endorsement struct {
	ID            string
	ClaimID       string
	WalletAddress string
	Vote          Vote
	Signature     string
	Message       string
	CreatedAt     time.Time
}

// DuplicateGroup is a set of claims sharing a content hash
type DuplicateGroup struct {
	ContentHash string
	Claims      []*Claim
}
