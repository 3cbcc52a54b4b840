package core

import "errors"

var (
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalidated = errors.New("token has been invalidated")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidToken     = errors.New("invalid token")

	ErrInvalidAddress  = errors.New("invalid wallet address")
	ErrInvalidMessage  = errors.New("invalid message")
	ErrMessageExpired  = errors.New("message has expired")
	ErrMessageReplayed = errors.New("message has already been used")
	ErrIdentityStore   = errors.New("identity store failure")
	ErrRateLimited     = errors.New("rate limit exceeded")

	ErrClaimNotFound   = errors.New("claim not found")
	ErrInvalidURL      = errors.New("invalid url")
	ErrInvalidStatus   = errors.New("invalid claim status")
	ErrInvalidVote     = errors.New("invalid vote")
	ErrSelfEndorsement = errors.New("cannot vote on own claim")
)

// AuthReason explains why a request could not be authenticated
type AuthReason string

const (
	AuthMissing AuthReason = "missing"
	AuthInvalid AuthReason = "invalid"
)

// AuthError is returned by the request authenticator
type AuthError struct {
	Reason AuthReason
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return "unauthorized (" + string(e.Reason) + "): " + e.Err.Error()
	}
	return "unauthorized (" + string(e.Reason) + ")"
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
