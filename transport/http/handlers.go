package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/layer-3/creator-ledger/core"
	"github.com/layer-3/creator-ledger/ports"
	"github.com/layer-3/creator-ledger/service"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	logger      *zap.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
	}
}

// Wallet exchanges a signed authentication message for a session
func (h *AuthHandlers) Wallet(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"walletAddress" binding:"required"`
		Signature     string `json:"signature" binding:"required"`
		Message       string `json:"message" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	pair, err := h.authService.ExchangeSignature(c.Request.Context(), service.ExchangeRequest{
		WalletAddress: req.WalletAddress,
		Signature:     req.Signature,
		Message:       req.Message,
	})
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Authentication failed"

		// Map specific errors to appropriate status codes
		switch {
		case errors.Is(err, core.ErrInvalidAddress):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid wallet address"
		case errors.Is(err, core.ErrInvalidMessage):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid message"
		case errors.Is(err, core.ErrMessageExpired):
			statusCode = http.StatusUnauthorized
			errorMsg = "Message expired"
		case errors.Is(err, core.ErrInvalidSignature):
			statusCode = http.StatusUnauthorized
			errorMsg = "Invalid signature"
		case errors.Is(err, core.ErrMessageReplayed):
			statusCode = http.StatusUnauthorized
			errorMsg = "Message already used"
		case errors.Is(err, core.ErrIdentityStore):
			errorMsg = "Failed to create identity"
		default:
			h.logger.Error("signature exchange failed", zap.Error(err))
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, toTokenResponse(pair))
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Failed to refresh tokens"

		switch {
		case errors.Is(err, core.ErrTokenExpired):
			statusCode = http.StatusUnauthorized
			errorMsg = "Refresh token expired"
		case errors.Is(err, core.ErrTokenInvalidated):
			statusCode = http.StatusUnauthorized
			errorMsg = "Refresh token has been invalidated"
		case errors.Is(err, core.ErrInvalidToken):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid refresh token"
		default:
			h.logger.Error("token refresh failed", zap.Error(err))
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, toTokenResponse(pair))
}

// Logout handles session logout
func (h *AuthHandlers) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	err := h.authService.Logout(c.Request.Context(), req.RefreshToken)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Failed to logout"

		if errors.Is(err, core.ErrInvalidToken) {
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid refresh token"
		} else {
			h.logger.Error("logout failed", zap.Error(err))
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the identity of the authenticated wallet
func (h *AuthHandlers) Me(c *gin.Context) {
	// Wallet is set by RequireAuth
	addr, ok := walletFrom(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	identity, err := h.authService.CurrentIdentity(c.Request.Context(), addr)
	if err != nil {
		if errors.Is(err, ports.ErrIdentityNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Identity not found"})
			return
		}
		h.logger.Error("identity lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load identity"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address": addr.Checksummed(),
		"user":    toUserResponse(identity),
	})
}

// Verify re-runs signature verification for a verification link
func Verify(c *gin.Context) {
	result := service.VerifyLink(
		c.Query("address"),
		c.Query("signature"),
		c.Query("message"),
		c.Query("entryId"),
	)
	c.JSON(http.StatusOK, result)
}

// Healthz reports liveness
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
