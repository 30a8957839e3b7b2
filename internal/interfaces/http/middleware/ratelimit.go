package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/billforge/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// maxTrackedClients bounds limiter memory; the least recently seen key is evicted first
const maxTrackedClients = 10000

// RateLimiter hands out a token bucket per client key. Buckets refill at
// limit per window and allow bursts up to limit.
type RateLimiter struct {
	mu       sync.Mutex
	limit    int
	every    rate.Limit
	limiters *expirable.LRU[string, *rate.Limiter]
}

// NewRateLimiter creates a limiter allowing limit requests per window per key
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:    limit,
		every:    rate.Every(window / time.Duration(limit)),
		limiters: expirable.NewLRU[string, *rate.Limiter](maxTrackedClients, nil, window*2),
	}
}

func (rl *RateLimiter) bucket(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if lim, ok := rl.limiters.Get(key); ok {
		return lim
	}
	lim := rate.NewLimiter(rl.every, rl.limit)
	rl.limiters.Add(key, lim)
	return lim
}

// Allow consumes a token for key
func (rl *RateLimiter) Allow(key string) bool {
	return rl.bucket(key).Allow()
}

// Remaining returns the whole tokens left for key
func (rl *RateLimiter) Remaining(key string) int {
	lim, ok := rl.limiters.Peek(key)
	if !ok {
		return rl.limit
	}
	return max(0, int(lim.Tokens()))
}

// Limit returns the burst size
func (rl *RateLimiter) Limit() int {
	return rl.limit
}

// ClientKey limits authenticated callers by user and everyone else by IP
func ClientKey(c *gin.Context) string {
	if userID := GetUserID(c); userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}

// RateLimit limits by ClientKey and sets X-RateLimit headers
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return RateLimitByKey(limiter, ClientKey)
}

// RateLimitByKey limits with a custom key extractor
func RateLimitByKey(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))

		if !limiter.Allow(key) {
			c.Header("X-RateLimit-Remaining", "0")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited,
				"Too many requests. Please try again later.",
				c.GetString(RequestIDKey),
			))
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key)))
		c.Next()
	}
}
