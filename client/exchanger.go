// Package client is the wallet side of the sign-in flow: it builds the
// authentication message, has the wallet sign it and exchanges it for a session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/layer-3/creator-ledger/internal/eth"
	"github.com/layer-3/creator-ledger/internal/message"
)

// State is where the exchanger is in the sign-in flow
type State int

const (
	Unauthenticated State = iota
	Verifying
	Authenticated
	Rejected
)

func (s State) String() string {
	switch s {
	case Verifying:
		return "verifying"
	case Authenticated:
		return "authenticated"
	case Rejected:
		return "rejected"
	default:
		return "unauthenticated"
	}
}

// SignFunc asks the wallet to personal_sign msg. It returns ErrSigningDeclined
// when the holder refuses.
type SignFunc func(ctx context.Context, msg string) (string, error)

// User is the identity returned with a session
type User struct {
	ID            string            `json:"id"`
	WalletAddress string            `json:"wallet_address"`
	UserMetadata  map[string]string `json:"user_metadata"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Session is an issued token pair
type Session struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
	User         User
}

// Expired reports whether the access token has passed its expiry at now
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	User         User   `json:"user"`
}

// Option configures an Exchanger
type Option func(*Exchanger)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(e *Exchanger) { e.httpClient = c }
}

// WithTimeout bounds every request
func WithTimeout(d time.Duration) Option {
	return func(e *Exchanger) { e.timeout = d }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(e *Exchanger) { e.logger = l }
}

// WithClock sets the clock used for message timestamps and expiry
func WithClock(c message.Clock) Option {
	return func(e *Exchanger) { e.clock = c }
}

// Exchanger runs the sign-in flow against a ledger server and caches the session
type Exchanger struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *zap.Logger
	clock      message.Clock

	mu      sync.Mutex
	state   State
	session *Session
}

// NewExchanger creates an exchanger for the server at baseURL
func NewExchanger(baseURL string, opts ...Option) *Exchanger {
	e := &Exchanger{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    15 * time.Second,
		logger:     zap.NewNop(),
		clock:      message.SystemClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current flow state
func (e *Exchanger) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Session returns a copy of the cached session, or nil
func (e *Exchanger) Session() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	s := *e.session
	return &s
}

func (e *Exchanger) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Authenticate signs an authentication message for walletAddress and
// exchanges it for a session. A cached unexpired session for the same
// wallet is returned without prompting.
func (e *Exchanger) Authenticate(ctx context.Context, walletAddress string, sign SignFunc) (*Session, error) {
	addr, err := eth.ParseAddress(walletAddress)
	if err != nil {
		return nil, ErrInvalidAddress
	}

	if s := e.Session(); s != nil && s.User.WalletAddress == addr.Normalized() && !s.Expired(e.clock.Now()) {
		return s, nil
	}

	prev := e.State()
	e.setState(Verifying)

	msg := message.NewBuilder(e.clock).Build(message.KindAuth, message.Fields{Address: addr.Normalized()})

	sig, err := sign(ctx, msg)
	if err != nil {
		if errors.Is(err, ErrSigningDeclined) || ctx.Err() != nil {
			e.setState(prev)
			e.logger.Debug("signing declined", zap.String("address", addr.Normalized()))
			return nil, ErrCancelled
		}
		e.setState(Rejected)
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}

	tokens, err := e.post(ctx, "/auth/wallet", map[string]string{
		"walletAddress": string(addr.Checksummed()),
		"signature":     sig,
		"message":       msg,
	})
	if err != nil {
		e.setState(Rejected)
		e.logger.Info("session exchange failed", zap.String("address", addr.Normalized()), zap.Error(err))
		return nil, err
	}

	return e.store(tokens), nil
}

// Refresh rotates the cached session's refresh token
func (e *Exchanger) Refresh(ctx context.Context) (*Session, error) {
	s := e.Session()
	if s == nil {
		return nil, ErrNotAuthenticated
	}

	tokens, err := e.post(ctx, "/auth/refresh", map[string]string{"refresh_token": s.RefreshToken})
	if err != nil {
		if errors.Is(err, ErrInvalidSignature) || errors.Is(err, ErrInvalidInput) {
			e.clear()
		}
		return nil, err
	}

	return e.store(tokens), nil
}

// SignOut revokes the cached session and forgets it
func (e *Exchanger) SignOut(ctx context.Context) error {
	s := e.Session()
	if s == nil {
		return nil
	}

	_, err := e.post(ctx, "/auth/logout", map[string]string{"refresh_token": s.RefreshToken})
	e.clear()

	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return nil
}

func (e *Exchanger) store(tokens *tokenResponse) *Session {
	s := &Session{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		ExpiresAt:    e.clock.Now().Add(time.Duration(tokens.ExpiresIn) * time.Second),
		User:         tokens.User,
	}

	e.mu.Lock()
	e.session = s
	e.state = Authenticated
	e.mu.Unlock()

	out := *s
	return &out
}

func (e *Exchanger) clear() {
	e.mu.Lock()
	e.session = nil
	e.state = Unauthenticated
	e.mu.Unlock()
}

// post sends body as JSON and decodes a token response, mapping error statuses
func (e *Exchanger) post(ctx context.Context, path string, body any) (*tokenResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var tokens tokenResponse
		if err := json.Unmarshal(raw, &tokens); err != nil {
			return nil, fmt.Errorf("%w: malformed response: %v", ErrIssuerFailure, err)
		}
		return &tokens, nil
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, errorMessage(raw))
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %s", ErrInvalidSignature, errorMessage(raw))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitedError{RetryAfter: retryAfter(resp.Header.Get("Retry-After"))}
	default:
		return nil, fmt.Errorf("%w: status %d: %s", ErrIssuerFailure, resp.StatusCode, errorMessage(raw))
	}
}

func errorMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(raw))
}

func retryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs < 1 {
		return time.Second
	}
	return time.Duration(secs) * time.Second
}
