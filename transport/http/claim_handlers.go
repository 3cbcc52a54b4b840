package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/layer-3/creator-ledger/core"
	"github.com/layer-3/creator-ledger/internal/eth"
	"github.com/layer-3/creator-ledger/service"
)

// ClaimHandlers contains HTTP handlers for claims, profiles and review
type ClaimHandlers struct {
	claimService *service.ClaimService
	logger       *zap.Logger
}

// NewClaimHandlers creates new claim handlers
func NewClaimHandlers(claimService *service.ClaimService, logger *zap.Logger) *ClaimHandlers {
	return &ClaimHandlers{
		claimService: claimService,
		logger:       logger,
	}
}

// fail writes the response for a claim service error
func (h *ClaimHandlers) fail(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError
	errorMsg := "Internal server error"

	switch {
	case errors.Is(err, core.ErrInvalidURL):
		statusCode = http.StatusBadRequest
		errorMsg = "Invalid url"
	case errors.Is(err, core.ErrInvalidMessage):
		statusCode = http.StatusBadRequest
		errorMsg = "Invalid message"
	case errors.Is(err, core.ErrInvalidVote):
		statusCode = http.StatusBadRequest
		errorMsg = "Invalid vote"
	case errors.Is(err, core.ErrInvalidStatus):
		statusCode = http.StatusBadRequest
		errorMsg = "Invalid status"
	case errors.Is(err, core.ErrInvalidSignature):
		statusCode = http.StatusUnauthorized
		errorMsg = "Invalid signature"
	case errors.Is(err, core.ErrSelfEndorsement):
		statusCode = http.StatusForbidden
		errorMsg = "Cannot vote on own claim"
	case errors.Is(err, core.ErrClaimNotFound):
		statusCode = http.StatusNotFound
		errorMsg = "Claim not found"
	default:
		h.logger.Error("claim request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}

	c.JSON(statusCode, gin.H{"error": errorMsg})
}

// Submit stores a new claim for the authenticated wallet
func (h *ClaimHandlers) Submit(c *gin.Context) {
	owner, ok := walletFrom(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		URL       string `json:"url" binding:"required"`
		Title     string `json:"title"`
		Signature string `json:"signature"`
		Message   string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	res, err := h.claimService.Submit(c.Request.Context(), owner, service.SubmitClaimRequest{
		URL:       req.URL,
		Title:     req.Title,
		Signature: req.Signature,
		Message:   req.Message,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	body := gin.H{
		"claim":      toClaimResponse(res.Claim),
		"duplicates": toClaimResponses(res.Duplicates),
	}
	if res.VerifyURL != "" {
		body["verify_url"] = res.VerifyURL
	}
	c.JSON(http.StatusCreated, body)
}

// Get returns a single claim
func (h *ClaimHandlers) Get(c *gin.Context) {
	claim, err := h.claimService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	// Unreviewed claims are visible only to their owner
	if claim.Status != core.StatusVerified {
		viewer, ok := walletFrom(c)
		if !ok || viewer.Normalized() != claim.WalletAddress {
			c.JSON(http.StatusNotFound, gin.H{"error": "Claim not found"})
			return
		}
	}

	c.JSON(http.StatusOK, toClaimResponse(claim))
}

// Endorse records a signed vote on a claim
func (h *ClaimHandlers) Endorse(c *gin.Context) {
	voter, ok := walletFrom(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		Vote      string `json:"vote" binding:"required"`
		Signature string `json:"signature" binding:"required"`
		Message   string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	claim, err := h.claimService.Endorse(c.Request.Context(), voter, c.Param("id"), service.EndorseRequest{
		Vote:      core.Vote(req.Vote),
		Signature: req.Signature,
		Message:   req.Message,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toClaimResponse(claim))
}

// Profile returns a wallet's public portfolio
func (h *ClaimHandlers) Profile(c *gin.Context) {
	addr, err := eth.ParseAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address"})
		return
	}

	var viewer *eth.Address
	if v, ok := walletFrom(c); ok {
		viewer = &v
	}

	profile, err := h.claimService.Profile(c.Request.Context(), addr, viewer)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":        profile.Address.Checksummed(),
		"owner":          profile.Owner,
		"verified_count": profile.VerifiedCount,
		"claims":         toClaimResponses(profile.Claims),
	})
}

// Duplicates lists claims grouped by shared content hash
func (h *ClaimHandlers) Duplicates(c *gin.Context) {
	groups, err := h.claimService.Duplicates(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	out := make([]duplicateGroupResponse, len(groups))
	for i, g := range groups {
		out[i] = duplicateGroupResponse{ContentHash: g.ContentHash, Claims: toClaimResponses(g.Claims)}
	}
	c.JSON(http.StatusOK, gin.H{"groups": out})
}

// Review sets a claim's status
func (h *ClaimHandlers) Review(c *gin.Context) {
	reviewer, ok := walletFrom(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	claim, err := h.claimService.Review(c.Request.Context(), reviewer, c.Param("id"), core.ClaimStatus(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toClaimResponse(claim))
}
