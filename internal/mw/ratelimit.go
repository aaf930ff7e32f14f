package mw

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// ClientLimiters hands out one token bucket per client. Buckets of clients
// that stay quiet for the idle period are evicted.
type ClientLimiters struct {
	limiters *cache.Cache
	r        rate.Limit
	b        int
	idle     time.Duration
}

// NewClientLimiters creates a limiter set allowing r requests per second with
// burst b per client.
func NewClientLimiters(r rate.Limit, b int, idle time.Duration) *ClientLimiters {
	return &ClientLimiters{
		limiters: cache.New(idle, 2*idle),
		r:        r,
		b:        b,
		idle:     idle,
	}
}

// Get returns the bucket for client, creating it on first use.
func (l *ClientLimiters) Get(client string) *rate.Limiter {
	if v, found := l.limiters.Get(client); found {
		limiter := v.(*rate.Limiter)
		l.limiters.Set(client, limiter, l.idle)
		return limiter
	}
	limiter := rate.NewLimiter(l.r, l.b)
	if err := l.limiters.Add(client, limiter, l.idle); err != nil {
		// another request created it first
		if v, found := l.limiters.Get(client); found {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// Len returns the number of tracked clients.
func (l *ClientLimiters) Len() int {
	return l.limiters.ItemCount()
}

// ClientKey identifies the caller, preferring ipHeader when a reverse proxy
// sets it.
func ClientKey(ipHeader string) func(*gin.Context) string {
	return func(c *gin.Context) string {
		if ipHeader != "" {
			if v := c.GetHeader(ipHeader); v != "" {
				first, _, _ := strings.Cut(v, ",")
				return strings.TrimSpace(first)
			}
		}
		return c.ClientIP()
	}
}

// RateLimiter rejects callers that exceed their bucket with 429.
func RateLimiter(limiters *ClientLimiters, key func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := limiters.Get(key(c))
		if !limiter.Allow() {
			retry := 1
			if limiter.Limit() > 0 {
				retry = int(math.Ceil(1 / float64(limiter.Limit())))
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
