package http

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/OussamaEt-taghy/soficosmos/internal/domain"
	"github.com/OussamaEt-taghy/soficosmos/internal/tenancy"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// rateLimit enforces the per-tenant window for one route. It runs after
// tenant resolution so the bucket key always names a tenant.
func (s *Server) rateLimit(routeID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.rateLimiter == nil || s.rateLimitRequests <= 0 {
			c.Next()
			return
		}
		tenant, ok := tenancy.TenantFrom(c.Request.Context())
		if !ok {
			s.writeError(c, domain.ErrTenantNotResolved)
			return
		}
		key := fmt.Sprintf("tenant:%s:route:%s", tenant, routeID)
		if s.rateLimitWithSubject {
			if principal, ok := domain.PrincipalFromContext(c.Request.Context()); ok && principal.Subject != "" {
				sum := sha256.Sum256([]byte(principal.Subject))
				key = key + ":subject_hash:" + hex.EncodeToString(sum[:])
			}
		}

		decision, err := s.rateLimiter.Allow(c.Request.Context(), key, s.rateLimitRequests, s.rateLimitWindow)
		if err != nil {
			s.logger.Warn("rate limiter unavailable", zap.String("route", routeID), zap.Error(err))
			if s.rateLimitFailClosed {
				s.writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMIT_UNAVAILABLE", "rate limiter unavailable", nil)
				return
			}
			c.Next()
			return
		}
		writeRateLimitHeaders(c, decision)
		if !decision.Allowed {
			s.metrics.Limited(routeID)
			s.writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded", nil)
			return
		}
		c.Next()
	}
}

func writeRateLimitHeaders(c *gin.Context, decision domain.RateLimitDecision) {
	if decision.Limit > 0 {
		c.Header("RateLimit-Limit", strconv.Itoa(decision.Limit))
	}
	if decision.Remaining >= 0 {
		c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if !decision.ResetAt.IsZero() {
		c.Header("RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
		if !decision.Allowed {
			retryAfter := int64(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
		}
	}
}
