package client

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSigningDeclined is returned by a SignFunc when the wallet holder refuses to sign
	ErrSigningDeclined = errors.New("signing declined")
	// ErrCancelled means the flow stopped before any request was sent
	ErrCancelled = errors.New("authentication cancelled")

	ErrInvalidAddress   = errors.New("invalid wallet address")
	ErrInvalidInput     = errors.New("request rejected as invalid")
	ErrInvalidSignature = errors.New("signature rejected")
	ErrIssuerFailure    = errors.New("session issuer failure")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// RateLimitedError is returned when the server answers 429
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// TransportError wraps network failures and timeouts. It is safe to retry.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport error: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Temporary reports that the request may be retried
func (e *TransportError) Temporary() bool {
	return true
}
