package service

import (
	"context"
	"strings"

	"github.com/layer-3/creator-ledger/core"
	"github.com/layer-3/creator-ledger/internal/eth"
)

// Authenticator resolves the wallet behind a bearer access token
type Authenticator struct {
	auth *AuthService
}

// NewAuthenticator creates a request authenticator backed by auth
func NewAuthenticator(auth *AuthService) *Authenticator {
	return &Authenticator{auth: auth}
}

// AuthenticateRequest validates an Authorization header value.
// Errors are always *core.AuthError.
func (a *Authenticator) AuthenticateRequest(ctx context.Context, authorization string) (eth.Address, error) {
	authorization = strings.TrimSpace(authorization)
	if authorization == "" {
		return eth.Address{}, &core.AuthError{Reason: core.AuthMissing}
	}

	scheme, token, ok := strings.Cut(authorization, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return eth.Address{}, &core.AuthError{Reason: core.AuthInvalid, Err: core.ErrInvalidToken}
	}

	session, err := a.auth.ValidateAccessToken(ctx, token)
	if err != nil {
		return eth.Address{}, &core.AuthError{Reason: core.AuthInvalid, Err: err}
	}

	addr, err := eth.ParseAddress(session.Address)
	if err != nil {
		return eth.Address{}, &core.AuthError{Reason: core.AuthInvalid, Err: core.ErrInvalidAddress}
	}

	return addr, nil
}
