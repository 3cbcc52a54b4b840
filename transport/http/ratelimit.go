package http

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/layer-3/creator-ledger/core"
	"github.com/layer-3/creator-ledger/internal/metrics"
	"github.com/layer-3/creator-ledger/ports"
)

// KeyFunc derives the rate limit subject of a request
type KeyFunc func(c *gin.Context) string

// KeyByIP limits per client IP
func KeyByIP(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// KeyByWallet limits per authenticated wallet, falling back to the client IP
func KeyByWallet(c *gin.Context) string {
	if addr, ok := walletFrom(c); ok {
		return "wallet:" + addr.Normalized()
	}
	return KeyByIP(c)
}

// RateLimit enforces limit per key within scope. Store failures let the request through.
func RateLimit(store ports.RateLimitStore, limit ports.Limit, scope string, key KeyFunc, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := store.Check(c.Request.Context(), scope+":"+key(c), limit)
		if err != nil {
			logger.Warn("rate limit check failed", zap.String("scope", scope), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit.Max))

		if !res.Allowed {
			retryAfter := int(math.Ceil(time.Until(res.ResetAt).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			metrics.RateLimitRejections.WithLabelValues(scope).Inc()
			_ = c.Error(core.ErrRateLimited)

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.Header("X-RateLimit-Remaining", "0")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "Rate limit exceeded",
				"retryAfter": retryAfter,
			})
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Next()
	}
}
