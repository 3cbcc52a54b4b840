package tokenizer

import "github.com/golang-jwt/jwt/v5"

// UserMetadata carries the wallet the identity is bound to
type UserMetadata struct {
	WalletAddress string `json:"wallet_address,omitempty"`
	Address       string `json:"address,omitempty"`
}

// AccessClaims combines standard claims with access-specific ones
type AccessClaims struct {
	jwt.RegisteredClaims
	RefreshID    string       `json:"rid"` // ID of the refresh token
	UserMetadata UserMetadata `json:"user_metadata"`
}

// RefreshClaims combines standard claims with the bound wallet
type RefreshClaims struct {
	jwt.RegisteredClaims
	WalletAddress string `json:"wallet_address"`
}
