package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"refpay/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimit admits requests through the limiter, keyed by partner when
// authenticated, by client IP otherwise. A limiter backend failure fails open:
// payout requests must not die with Redis.
func RateLimit(limiter ratelimit.Limiter, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if id := GetPartnerID(c); id != 0 {
			key = fmt.Sprintf("partner:%d", id)
		}
		d, err := limiter.Admit(c.Request.Context(), key)
		if err != nil {
			log.Errorw("rate limiter unavailable, failing open", "error", err)
			c.Next()
			return
		}
		if !d.Allowed {
			seconds := int(d.RetryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
