package http

import (
	"time"

	"github.com/layer-3/creator-ledger/core"
)

type userResponse struct {
	ID            string            `json:"id"`
	WalletAddress string            `json:"wallet_address"`
	UserMetadata  map[string]string `json:"user_metadata"`
	CreatedAt     time.Time         `json:"created_at"`
	LastSignInAt  *time.Time        `json:"last_sign_in_at,omitempty"`
}

func toUserResponse(identity *core.Identity) userResponse {
	resp := userResponse{
		ID:            identity.ID,
		WalletAddress: identity.WalletAddress,
		UserMetadata:  identity.Metadata,
		CreatedAt:     identity.CreatedAt,
	}
	if !identity.LastSignInAt.IsZero() {
		at := identity.LastSignInAt
		resp.LastSignInAt = &at
	}
	return resp
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"` // seconds
	User         userResponse `json:"user"`
}

func toTokenResponse(pair *core.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(pair.ExpiresIn / time.Second),
		User:         toUserResponse(pair.Identity),
	}
}

type claimResponse struct {
	ID            string           `json:"id"`
	WalletAddress string           `json:"wallet_address"`
	URL           string           `json:"url"`
	Title         string           `json:"title"`
	ContentHash   string           `json:"content_hash"`
	Signature     string           `json:"signature,omitempty"`
	Message       string           `json:"message,omitempty"`
	Status        core.ClaimStatus `json:"status"`
	ReviewedBy    string           `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time       `json:"reviewed_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	Endorsements  int              `json:"endorsements"`
	Disputes      int              `json:"disputes"`
}

func toClaimResponse(c *core.Claim) claimResponse {
	return claimResponse{
		ID:            c.ID,
		WalletAddress: c.WalletAddress,
		URL:           c.URL,
		Title:         c.Title,
		ContentHash:   c.ContentHash,
		Signature:     c.Signature,
		Message:       c.Message,
		Status:        c.Status,
		ReviewedBy:    c.ReviewedBy,
		ReviewedAt:    c.ReviewedAt,
		CreatedAt:     c.CreatedAt,
		Endorsements:  c.Endorsements,
		Disputes:      c.Disputes,
	}
}

func toClaimResponses(claims []*core.Claim) []claimResponse {
	out := make([]claimResponse, len(claims))
	for i, c := range claims {
		out[i] = toClaimResponse(c)
	}
	return out
}

type duplicateGroupResponse struct {
	ContentHash string          `json:"content_hash"`
	Claims      []claimResponse `json:"claims"`
}
