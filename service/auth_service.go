package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/layer-3/creator-ledger/core"
	"github.com/layer-3/creator-ledger/internal/eth"
	"github.com/layer-3/creator-ledger/internal/message"
	"github.com/layer-3/creator-ledger/internal/metrics"
	"github.com/layer-3/creator-ledger/ports"
)

// AuthConfig holds session lifetimes and message freshness bounds
type AuthConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	MessageMaxAge time.Duration
	ClockSkew     time.Duration
	StoreTimeout  time.Duration
	Clock         message.Clock
}

// DefaultAuthConfig returns the lifetimes used when none are configured
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    5 * 24 * time.Hour, // 5 days
		MessageMaxAge: 5 * time.Minute,
		ClockSkew:     time.Minute,
		StoreTimeout:  5 * time.Second,
		Clock:         message.SystemClock{},
	}
}

// ExchangeRequest is a signed authentication message presented by a wallet
type ExchangeRequest struct {
	WalletAddress string
	Signature     string
	Message       string
}

// AuthService handles authentication business logic
type AuthService struct {
	tokenizer  ports.Tokenizer
	store      ports.RevocationStore
	identities ports.IdentityStore
	eventPub   ports.EventPublisher
	logger     *zap.Logger

	cfg AuthConfig
}

// NewAuthService creates a new authentication service
func NewAuthService(
	cfg AuthConfig,
	tokenizer ports.Tokenizer,
	store ports.RevocationStore,
	identities ports.IdentityStore,
	eventPub ports.EventPublisher,
	logger *zap.Logger,
) *AuthService {
	if cfg.Clock == nil {
		cfg.Clock = message.SystemClock{}
	}
	return &AuthService{
		tokenizer:  tokenizer,
		store:      store,
		identities: identities,
		eventPub:   eventPub,
		logger:     logger.Named("auth"),
		cfg:        cfg,
	}
}

// ExchangeSignature verifies a signed authentication message and issues a session
// for the wallet, creating its identity on first sign-in.
func (s *AuthService) ExchangeSignature(ctx context.Context, req ExchangeRequest) (*core.TokenPair, error) {
	pair, err := s.exchange(ctx, req)
	metrics.AuthAttempts.WithLabelValues(outcome(err)).Inc()
	return pair, err
}

func (s *AuthService) exchange(ctx context.Context, req ExchangeRequest) (*core.TokenPair, error) {
	addr, err := eth.ParseAddress(req.WalletAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidAddress, truncateString(req.WalletAddress, 64))
	}

	parsed, err := message.Parse(req.Message)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidMessage, err)
	}
	if parsed.Kind != message.KindAuth {
		return nil, fmt.Errorf("%w: not an authentication message", core.ErrInvalidMessage)
	}
	signer, err := eth.ParseAddress(parsed.Fields.Address)
	if err != nil || !signer.Equal(addr) {
		return nil, fmt.Errorf("%w: wallet does not match", core.ErrInvalidMessage)
	}
	if err := s.checkFresh(parsed.Timestamp); err != nil {
		return nil, err
	}

	valid, err := eth.Verify(req.Message, req.Signature, addr.Checksummed())
	if err != nil || !valid {
		s.logger.Warn("signature verification failed",
			zap.String("address", addr.Normalized()),
			zap.String("signature", redactSignature(req.Signature)),
			zap.Error(err))
		return nil, core.ErrInvalidSignature
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	// A signed message is single use within its freshness window
	replayed, err := s.store.ConsumeOnce(storeCtx, replayKey(addr, req.Message), s.cfg.MessageMaxAge+s.cfg.ClockSkew)
	if err != nil {
		return nil, fmt.Errorf("failed to record message: %w", err)
	}
	if replayed {
		s.logger.Warn("replayed authentication message", zap.String("address", addr.Normalized()))
		return nil, core.ErrMessageReplayed
	}

	identity, created, err := s.findOrCreateIdentity(storeCtx, addr)
	if err != nil {
		s.logger.Error("identity lookup failed", zap.String("address", addr.Normalized()), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", core.ErrIdentityStore, err)
	}

	pair, err := s.issue(identity)
	if err != nil {
		return nil, err
	}

	if err := s.eventPub.PublishSignIn(ctx, identity, created); err != nil {
		s.logger.Warn("failed to publish sign-in event", zap.Error(err))
	}

	s.logger.Info("wallet signed in",
		zap.String("address", identity.WalletAddress),
		zap.String("identity_id", identity.ID),
		zap.Bool("created", created))

	return pair, nil
}

func (s *AuthService) checkFresh(ts time.Time) error {
	now := s.cfg.Clock.Now()
	if ts.After(now.Add(s.cfg.ClockSkew)) {
		return fmt.Errorf("%w: timestamp is in the future", core.ErrMessageExpired)
	}
	if now.Sub(ts) > s.cfg.MessageMaxAge {
		return core.ErrMessageExpired
	}
	return nil
}

func replayKey(addr eth.Address, msg string) string {
	return "auth:" + addr.Normalized() + ":" + eth.PersonalMessageHash(msg).Hex()
}

func (s *AuthService) findOrCreateIdentity(ctx context.Context, addr eth.Address) (*core.Identity, bool, error) {
	wallet := addr.Normalized()
	now := s.cfg.Clock.Now().UTC()

	identity, err := s.identities.GetIdentityByWallet(ctx, wallet)
	if err == nil {
		if err := s.identities.TouchSignIn(ctx, identity.ID, now); err != nil {
			s.logger.Warn("failed to record sign-in time", zap.String("identity_id", identity.ID), zap.Error(err))
		} else {
			identity.LastSignInAt = now
		}
		return identity, false, nil
	}
	if !errors.Is(err, ports.ErrIdentityNotFound) {
		return nil, false, err
	}

	identity = &core.Identity{
		ID:            uuid.New().String(),
		WalletAddress: wallet,
		Metadata:      core.NewIdentityMetadata(wallet),
		CreatedAt:     now,
		LastSignInAt:  now,
	}
	err = s.identities.CreateIdentity(ctx, identity)
	if errors.Is(err, ports.ErrIdentityExists) {
		// Lost a race with a concurrent first sign-in
		existing, err := s.identities.GetIdentityByWallet(ctx, wallet)
		return existing, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return identity, true, nil
}

// issue mints a fresh session for identity
func (s *AuthService) issue(identity *core.Identity) (*core.TokenPair, error) {
	now := s.cfg.Clock.Now()
	session := &core.Session{
		ID:            uuid.New().String(),
		IdentityID:    identity.ID,
		Address:       identity.WalletAddress,
		IssuedAt:      now,
		RefreshExpiry: now.Add(s.cfg.RefreshTTL),
		AccessExpiry:  now.Add(s.cfg.AccessTTL),
		RefreshID:     uuid.New().String(),
	}

	accessToken, err := s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := s.tokenizer.SessionToRefreshToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}

	return &core.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.cfg.AccessTTL,
		Identity:     identity,
	}, nil
}

// Refresh rotates the refresh token and issues new access and refresh tokens
func (s *AuthService) Refresh(ctx context.Context, refreshTokenStr string) (*core.TokenPair, error) {
	pair, err := s.refresh(ctx, refreshTokenStr)
	metrics.TokenRefreshes.WithLabelValues(outcome(err)).Inc()
	return pair, err
}

func (s *AuthService) refresh(ctx context.Context, refreshTokenStr string) (*core.TokenPair, error) {
	// Parse and validate the refresh token
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	// Check if the token has expired
	now := s.cfg.Clock.Now()
	if now.After(session.RefreshExpiry) {
		return nil, core.ErrTokenExpired
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	invalidated, err := s.store.IsTokenInvalidated(storeCtx, session.RefreshID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token invalidation: %w", err)
	}
	if invalidated {
		return nil, core.ErrTokenInvalidated
	}

	// The old token stays usable until the identity is confirmed
	identity, err := s.identities.GetIdentity(storeCtx, session.IdentityID)
	if err != nil {
		if errors.Is(err, ports.ErrIdentityNotFound) {
			return nil, fmt.Errorf("%w: unknown identity", core.ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrIdentityStore, err)
	}
	if identity.WalletAddress != session.Address {
		return nil, fmt.Errorf("%w: wallet mismatch", core.ErrInvalidToken)
	}

	// Two concurrent refreshes of the same token must not both succeed
	remainingTime := session.RefreshExpiry.Sub(now)
	used, err := s.store.ConsumeOnce(storeCtx, "refresh:"+session.RefreshID, remainingTime)
	if err != nil {
		return nil, fmt.Errorf("failed to record refresh: %w", err)
	}
	if used {
		return nil, core.ErrTokenInvalidated
	}

	// Invalidate the old refresh token, which also revokes access tokens bound to it
	if err := s.store.InvalidateToken(storeCtx, session.RefreshID, remainingTime); err != nil {
		return nil, fmt.Errorf("failed to invalidate old token: %w", err)
	}

	return s.issue(identity)
}

// Logout invalidates a refresh token
func (s *AuthService) Logout(ctx context.Context, refreshTokenStr string) error {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil && !errors.Is(err, core.ErrTokenExpired) {
		return fmt.Errorf("invalid refresh token: %w", err)
	}
	if session == nil {
		// Expired tokens are already unusable
		return nil
	}

	remainingTime := session.RefreshExpiry.Sub(s.cfg.Clock.Now())
	if remainingTime < time.Hour {
		// Keep a short record so clock drift cannot revive the token
		remainingTime = time.Hour
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	if err := s.store.InvalidateToken(storeCtx, session.RefreshID, remainingTime); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	// The token is already invalidated in the store, which is the critical part
	if err := s.eventPub.PublishLogout(ctx, session.Address, session.RefreshID); err != nil {
		s.logger.Warn("failed to publish logout event", zap.Error(err))
	}

	s.logger.Info("wallet signed out", zap.String("address", session.Address))
	return nil
}

// ValidateAccessToken parses an access token and checks it has not been revoked
func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Session, error) {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}

	if s.cfg.Clock.Now().After(session.AccessExpiry) {
		return nil, core.ErrTokenExpired
	}

	// Access tokens die with the refresh token they were issued alongside
	if session.RefreshID != "" {
		storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
		defer cancel()

		invalidated, err := s.store.IsTokenInvalidated(storeCtx, session.RefreshID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token invalidation: %w", err)
		}
		if invalidated {
			return nil, core.ErrTokenInvalidated
		}
	}

	return session, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, core.ErrInvalidAddress), errors.Is(err, core.ErrInvalidMessage):
		return "invalid_input"
	case errors.Is(err, core.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, core.ErrMessageExpired), errors.Is(err, core.ErrTokenExpired):
		return "expired"
	case errors.Is(err, core.ErrMessageReplayed), errors.Is(err, core.ErrTokenInvalidated):
		return "replayed"
	case errors.Is(err, core.ErrInvalidToken):
		return "invalid_token"
	default:
		return "error"
	}
}

// CurrentIdentity returns the identity bound to an authenticated wallet
func (s *AuthService) CurrentIdentity(ctx context.Context, addr eth.Address) (*core.Identity, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	identity, err := s.identities.GetIdentityByWallet(storeCtx, addr.Normalized())
	if err != nil {
		if errors.Is(err, ports.ErrIdentityNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", core.ErrIdentityStore, err)
	}
	return identity, nil
}
