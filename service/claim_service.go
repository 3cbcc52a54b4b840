package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/layer-3/creator-ledger/core"
	"github.com/layer-3/creator-ledger/internal/contenthash"
	"github.com/layer-3/creator-ledger/internal/eth"
	"github.com/layer-3/creator-ledger/internal/message"
	"github.com/layer-3/creator-ledger/internal/metrics"
	"github.com/layer-3/creator-ledger/ports"
)

const maxTitleLength = 300

// SubmitClaimRequest is a claim of authorship over a URL.
// Signature and Message are optional but must be given together.
type SubmitClaimRequest struct {
	URL       string
	Title     string
	Signature string
	Message   string
}

// SubmitResult is a stored claim and the earlier claims sharing its content hash
// that the submitter may see: its own and verified ones.
type SubmitResult struct {
	Claim      *core.Claim
	Duplicates []*core.Claim
	VerifyURL  string // Empty for unsigned claims
}

// EndorseRequest is a signed vote on a claim
type EndorseRequest struct {
	Vote      core.Vote
	Signature string
	Message   string
}

// Profile is the public portfolio of a wallet
type Profile struct {
	Address       eth.Address
	Owner         bool // The viewer is the profile's wallet
	Claims        []*core.Claim
	VerifiedCount int
}

// ClaimService handles claim submission, review and endorsement
type ClaimService struct {
	claims    ports.ClaimStore
	eventPub  ports.EventPublisher
	logger    *zap.Logger
	clock     message.Clock
	publicURL string
}

// NewClaimService creates a new claim service. publicURL is the base of verification links.
func NewClaimService(claims ports.ClaimStore, eventPub ports.EventPublisher, logger *zap.Logger, clock message.Clock, publicURL string) *ClaimService {
	if clock == nil {
		clock = message.SystemClock{}
	}
	return &ClaimService{
		claims:    claims,
		eventPub:  eventPub,
		logger:    logger.Named("claims"),
		clock:     clock,
		publicURL: publicURL,
	}
}

// Submit stores a new claim owned by owner. Claims over already claimed content
// are accepted and reported as duplicates.
func (s *ClaimService) Submit(ctx context.Context, owner eth.Address, req SubmitClaimRequest) (*SubmitResult, error) {
	rawURL := strings.TrimSpace(req.URL)
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if len(title) > maxTitleLength {
		return nil, fmt.Errorf("%w: title too long", core.ErrInvalidMessage)
	}

	hash := contenthash.Normalize(rawURL)

	if req.Signature != "" || req.Message != "" {
		if err := s.verifyClaimSignature(owner, rawURL, hash, req); err != nil {
			return nil, err
		}
	}

	existing, err := s.claims.ListClaimsByContentHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to look up duplicates: %w", err)
	}

	claim := &core.Claim{
		ID:            uuid.New().String(),
		WalletAddress: owner.Normalized(),
		URL:           rawURL,
		Title:         title,
		ContentHash:   hash,
		Signature:     req.Signature,
		Message:       req.Message,
		Status:        core.StatusUnverified,
		CreatedAt:     s.clock.Now().UTC(),
	}
	if err := s.claims.CreateClaim(ctx, claim); err != nil {
		return nil, fmt.Errorf("failed to store claim: %w", err)
	}

	metrics.ClaimsSubmitted.WithLabelValues(fmt.Sprint(claim.Signature != "")).Inc()
	if len(existing) > 0 {
		metrics.DuplicateClaims.Inc()
		s.logger.Info("claim shares content hash with earlier claims",
			zap.String("claim_id", claim.ID),
			zap.String("content_hash", hash),
			zap.Int("duplicates", len(existing)))
	}

	if err := s.eventPub.PublishClaimSubmitted(ctx, claim, len(existing)); err != nil {
		s.logger.Warn("failed to publish claim event", zap.Error(err))
	}

	result := &SubmitResult{Claim: claim, Duplicates: visibleTo(existing, owner)}
	if claim.Signature != "" {
		result.VerifyURL = message.VerificationLink(s.publicURL, string(owner.Checksummed()), claim.Signature, claim.Message, claim.ID)
	}
	return result, nil
}

// visibleTo keeps the claims owned by viewer and the verified ones
func visibleTo(claims []*core.Claim, viewer eth.Address) []*core.Claim {
	out := make([]*core.Claim, 0, len(claims))
	for _, c := range claims {
		if c.Status == core.StatusVerified || c.WalletAddress == viewer.Normalized() {
			out = append(out, c)
		}
	}
	return out
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: url is required", core.ErrInvalidURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: must be an absolute http(s) url", core.ErrInvalidURL)
	}
	return nil
}

func (s *ClaimService) verifyClaimSignature(owner eth.Address, rawURL, hash string, req SubmitClaimRequest) error {
	if req.Signature == "" || req.Message == "" {
		return fmt.Errorf("%w: signature and message must be provided together", core.ErrInvalidMessage)
	}

	parsed, err := message.Parse(req.Message)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidMessage, err)
	}
	if parsed.Kind != message.KindClaim {
		return fmt.Errorf("%w: not a claim message", core.ErrInvalidMessage)
	}
	if parsed.Fields.URL != rawURL {
		return fmt.Errorf("%w: message is for a different url", core.ErrInvalidMessage)
	}
	if parsed.Fields.ContentHash != "" && parsed.Fields.ContentHash != hash {
		return fmt.Errorf("%w: content hash does not match url", core.ErrInvalidMessage)
	}
	signer, err := eth.ParseAddress(parsed.Fields.Address)
	if err != nil || !signer.Equal(owner) {
		return fmt.Errorf("%w: wallet does not match", core.ErrInvalidMessage)
	}

	valid, err := eth.Verify(req.Message, req.Signature, owner.Checksummed())
	if err != nil || !valid {
		s.logger.Warn("claim signature verification failed",
			zap.String("address", owner.Normalized()),
			zap.String("signature", redactSignature(req.Signature)),
			zap.Error(err))
		return core.ErrInvalidSignature
	}
	return nil
}

// Get returns a claim with its vote counts
func (s *ClaimService) Get(ctx context.Context, id string) (*core.Claim, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, core.ErrClaimNotFound
	}
	return s.claims.GetClaim(ctx, id)
}

// Profile returns the claims of address as seen by viewer.
// Owners see every claim, everyone else only verified ones.
func (s *ClaimService) Profile(ctx context.Context, address eth.Address, viewer *eth.Address) (*Profile, error) {
	owner := viewer != nil && viewer.Equal(address)

	claims, err := s.claims.ListClaimsByWallet(ctx, address.Normalized(), !owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}

	verified := 0
	for _, c := range claims {
		if c.Status == core.StatusVerified {
			verified++
		}
	}

	return &Profile{
		Address:       address,
		Owner:         owner,
		Claims:        claims,
		VerifiedCount: verified,
	}, nil
}

// Duplicates returns every content hash claimed more than once
func (s *ClaimService) Duplicates(ctx context.Context) ([]core.DuplicateGroup, error) {
	groups, err := s.claims.ListDuplicateGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list duplicates: %w", err)
	}
	return groups, nil
}

// Review sets a claim's status to verified or rejected
func (s *ClaimService) Review(ctx context.Context, reviewer eth.Address, id string, status core.ClaimStatus) (*core.Claim, error) {
	if status != core.StatusVerified && status != core.StatusRejected {
		return nil, core.ErrInvalidStatus
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, core.ErrClaimNotFound
	}

	claim, err := s.claims.UpdateClaimStatus(ctx, id, status, reviewer.Normalized(), s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}

	metrics.ClaimReviews.WithLabelValues(string(status)).Inc()
	s.logger.Info("claim reviewed",
		zap.String("claim_id", id),
		zap.String("status", string(status)),
		zap.String("reviewer", reviewer.Normalized()))

	if err := s.eventPub.PublishClaimReviewed(ctx, claim); err != nil {
		s.logger.Warn("failed to publish review event", zap.Error(err))
	}
	return claim, nil
}

// Endorse records voter's signed vote on a claim, replacing any earlier vote
func (s *ClaimService) Endorse(ctx context.Context, voter eth.Address, claimID string, req EndorseRequest) (*core.Claim, error) {
	if !req.Vote.Valid() {
		return nil, core.ErrInvalidVote
	}

	claim, err := s.Get(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.WalletAddress == voter.Normalized() {
		return nil, core.ErrSelfEndorsement
	}
	// Unreviewed claims are hidden from everyone but their owner
	if claim.Status != core.StatusVerified {
		return nil, core.ErrClaimNotFound
	}

	if req.Signature == "" || req.Message == "" {
		return nil, fmt.Errorf("%w: signature is required", core.ErrInvalidMessage)
	}
	parsed, err := message.Parse(req.Message)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidMessage, err)
	}
	if parsed.Kind != message.KindEndorsement ||
		parsed.Fields.EntryID != claimID ||
		core.Vote(parsed.Fields.Vote) != req.Vote {
		return nil, fmt.Errorf("%w: message does not match vote", core.ErrInvalidMessage)
	}
	signer, err := eth.ParseAddress(parsed.Fields.Address)
	if err != nil || !signer.Equal(voter) {
		return nil, fmt.Errorf("%w: wallet does not match", core.ErrInvalidMessage)
	}

	valid, err := eth.Verify(req.Message, req.Signature, voter.Checksummed())
	if err != nil || !valid {
		s.logger.Warn("endorsement signature verification failed",
			zap.String("address", voter.Normalized()),
			zap.String("signature", redactSignature(req.Signature)),
			zap.Error(err))
		return nil, core.ErrInvalidSignature
	}

	err = s.claims.UpsertEndorsement(ctx, &core.Endorsement{
		ID:            uuid.New().String(),
		ClaimID:       claimID,
		WalletAddress: voter.Normalized(),
		Vote:          req.Vote,
		Signature:     req.Signature,
		Message:       req.Message,
		CreatedAt:     s.clock.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, core.ErrClaimNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to store endorsement: %w", err)
	}
	metrics.Endorsements.WithLabelValues(string(req.Vote)).Inc()

	return s.claims.GetClaim(ctx, claimID)
}
