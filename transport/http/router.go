package http

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/layer-3/creator-ledger/internal/eth"
	"github.com/layer-3/creator-ledger/ports"
	"github.com/layer-3/creator-ledger/service"
)

// Limits are the per-scope request quotas
type Limits struct {
	Auth    ports.Limit
	Claims  ports.Limit
	Default ports.Limit
}

// RouterDeps is everything the router wires into handlers and middleware
type RouterDeps struct {
	AuthService    *service.AuthService
	ClaimService   *service.ClaimService
	RateLimits     ports.RateLimitStore
	Limits         Limits
	AdminWallets   []string
	TrustedProxies []string
	Logger         *zap.Logger
}

// SetupRouter sets up the Gin router
func SetupRouter(deps RouterDeps) (*gin.Engine, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))
	if err := router.SetTrustedProxies(deps.TrustedProxies); err != nil {
		return nil, err
	}

	admins := make(map[string]struct{}, len(deps.AdminWallets))
	for _, w := range deps.AdminWallets {
		addr, err := eth.ParseAddress(w)
		if err != nil {
			return nil, fmt.Errorf("invalid admin wallet %q: %w", w, err)
		}
		admins[addr.Normalized()] = struct{}{}
	}

	// Create handlers
	authHandlers := NewAuthHandlers(deps.AuthService, logger)
	claimHandlers := NewClaimHandlers(deps.ClaimService, logger)
	authn := service.NewAuthenticator(deps.AuthService)

	limit := func(l ports.Limit, scope string, key KeyFunc) gin.HandlerFunc {
		return RateLimit(deps.RateLimits, l, scope, key, logger)
	}
	requireAuth := RequireAuth(authn, logger)
	optionalAuth := OptionalAuth(authn)

	router.GET("/healthz", Healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/verify", limit(deps.Limits.Default, "verify", KeyByIP), Verify)

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/wallet", limit(deps.Limits.Auth, "auth", KeyByIP), authHandlers.Wallet)
		auth.POST("/refresh", limit(deps.Limits.Default, "refresh", KeyByIP), authHandlers.Refresh)
		auth.POST("/logout", limit(deps.Limits.Default, "logout", KeyByIP), authHandlers.Logout)
	}

	// API routes
	api := router.Group("/api")
	{
		api.GET("/me", requireAuth, limit(deps.Limits.Default, "default", KeyByWallet), authHandlers.Me)
		api.POST("/claims", requireAuth, limit(deps.Limits.Claims, "claims", KeyByWallet), claimHandlers.Submit)
		api.GET("/claims/:id", optionalAuth, limit(deps.Limits.Default, "default", KeyByIP), claimHandlers.Get)
		api.POST("/claims/:id/endorsements", requireAuth, limit(deps.Limits.Default, "default", KeyByWallet), claimHandlers.Endorse)
		api.GET("/profiles/:address", optionalAuth, limit(deps.Limits.Default, "default", KeyByIP), claimHandlers.Profile)
	}

	admin := router.Group("/api/admin")
	admin.Use(requireAuth, RequireAdmin(admins), limit(deps.Limits.Default, "admin", KeyByWallet))
	{
		admin.GET("/duplicates", claimHandlers.Duplicates)
		admin.PATCH("/claims/:id", claimHandlers.Review)
	}

	return router, nil
}
