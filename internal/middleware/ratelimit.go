package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/ratelimit"
)

// SubmitIPRateLimit gates the public submission endpoint per client IP.
// Recording is optimistic: the counter moves at admission time, before the
// handler runs, so a burst cannot race the check-then-record gap.
func SubmitIPRateLimit(limiter *ratelimit.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if retryAfter, err := limiter.Check(key); err != nil {
			AbortRateLimited(c, retryAfter)
			return
		}
		limiter.Record(key)
		c.Next()
	}
}

// AbortRateLimited writes the 429 response. The message discloses only the
// remaining time, never the underlying counters or thresholds.
func AbortRateLimited(c *gin.Context, retryAfter time.Duration) {
	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(seconds))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":             "rate_limited",
		"error_description": fmt.Sprintf("Too many attempts. Try again in %s.", humanDuration(retryAfter)),
	})
}

func humanDuration(d time.Duration) string {
	if d < time.Minute {
		s := int(math.Ceil(d.Seconds()))
		if s <= 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", s)
	}
	if d < time.Hour {
		m := int(math.Ceil(d.Minutes()))
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	h := int(math.Ceil(d.Hours()))
	if h == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", h)
}
