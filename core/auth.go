package core

import "time"

// Identity is the backing record a wallet signs in as
type Identity struct {
	ID            string            // Unique identifier for the identity
	WalletAddress string            // Lowercase wallet address, unique
	Metadata      map[string]string // Carries wallet_address and address
	CreatedAt     time.Time         // When the identity was first created
	LastSignInAt  time.Time         // When the wallet last exchanged a signature
}

// Metadata keys stamped on every identity
const (
	MetadataWalletAddress = "wallet_address"
	MetadataAddress       = "address"
)

// NewIdentityMetadata returns the metadata recorded for a lowercase wallet address
func NewIdentityMetadata(walletAddress string) map[string]string {
	return map[string]string{
		MetadataWalletAddress: walletAddress,
		MetadataAddress:       walletAddress,
	}
}

// Session represents an authenticated user session
type Session struct {
	ID            string    // Unique session identifier
	IdentityID    string    // Identity the session is bound to
	Address       string    // Lowercase wallet address of the user
	IssuedAt      time.Time // When the session was created
	RefreshExpiry time.Time // When the refresh capability expires
	AccessExpiry  time.Time // When the access capability expires
	RefreshID     string    // Unique identifier for the refresh token
}

// TokenPair is what a successful sign-in or refresh returns
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	Identity     *Identity
}
