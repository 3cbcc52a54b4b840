package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/layer-3/creator-ledger/core"
	"github.com/layer-3/creator-ledger/internal/eth"
	"github.com/layer-3/creator-ledger/internal/metrics"
)

const walletKey = "wallet"

// RequestAuthenticator resolves the wallet behind an Authorization header
type RequestAuthenticator interface {
	AuthenticateRequest(ctx context.Context, authorization string) (eth.Address, error)
}

// walletFrom returns the authenticated wallet set by RequireAuth or OptionalAuth
func walletFrom(c *gin.Context) (eth.Address, bool) {
	v, ok := c.Get(walletKey)
	if !ok {
		return eth.Address{}, false
	}
	addr, ok := v.(eth.Address)
	return addr, ok
}

// RequireAuth rejects requests without a valid access token with 403
// before any other work is done.
func RequireAuth(authn RequestAuthenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		addr, err := authn.AuthenticateRequest(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			var authErr *core.AuthError
			reason := "invalid"
			if errors.As(err, &authErr) {
				reason = string(authErr.Reason)
			}
			logger.Debug("request not authenticated", zap.String("reason", reason), zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(walletKey, addr)
		c.Next()
	}
}

// OptionalAuth attaches the wallet when a valid token is present and
// otherwise serves the request anonymously.
func OptionalAuth(authn RequestAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if addr, err := authn.AuthenticateRequest(c.Request.Context(), c.GetHeader("Authorization")); err == nil {
			c.Set(walletKey, addr)
		}
		c.Next()
	}
}

// RequireAdmin allows only the listed wallets. Must run after RequireAuth.
func RequireAdmin(admins map[string]struct{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		addr, ok := walletFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
			return
		}
		if _, ok := admins[addr.Normalized()]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}

// RequestLogger logs every request through zap and records its latency
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		latency := time.Since(start)

		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).
			Observe(latency.Seconds())

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case status >= http.StatusBadRequest:
			logger.Info("request", fields...)
		default:
			logger.Debug("request", fields...)
		}
	}
}
