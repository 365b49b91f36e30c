package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimiterConfig holds configuration for rate limiting
type RateLimiterConfig struct {
	MessagesPerMinute int           // Max messages per client per minute
	BurstSize         int           // Allow burst of N requests
	CleanupInterval   time.Duration // How often to evict idle buckets
}

// TokenBucket implements a token bucket rate limiter
type TokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a new token bucket
func NewTokenBucket(maxTokens float64, refillRate float64) *TokenBucket {
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow checks if a request can proceed and consumes a token if so
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()

	// Refill tokens based on elapsed time
	tb.tokens = min(tb.maxTokens, tb.tokens+(elapsed*tb.refillRate))
	tb.lastRefill = now

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// idleSince reports whether the bucket has not been used since the cutoff.
func (tb *TokenBucket) idleSince(cutoff time.Time) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.lastRefill.Before(cutoff)
}

// RateLimiter tracks one token bucket per client key.
type RateLimiter struct {
	buckets     map[string]*TokenBucket
	cfg         RateLimiterConfig
	mu          sync.Mutex
	logger      *zap.Logger
	stopCleanup chan struct{}
}

func NewRateLimiter(cfg RateLimiterConfig, logger *zap.Logger) *RateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 10 * time.Minute
	}
	rl := &RateLimiter{
		buckets:     make(map[string]*TokenBucket),
		cfg:         cfg,
		logger:      logger,
		stopCleanup: make(chan struct{}),
	}

	// Start cleanup goroutine
	go rl.cleanupRoutine()

	return rl
}

// cleanupRoutine periodically evicts buckets idle for a full cleanup interval.
func (rl *RateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle(time.Now().Add(-rl.cfg.CleanupInterval))
		case <-rl.stopCleanup:
			return
		}
	}
}

// evictIdle drops buckets not used since the cutoff. An evicted client gets
// a fresh full bucket on its next request, which only relaxes the limit.
func (rl *RateLimiter) evictIdle(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	before := len(rl.buckets)
	for key, bucket := range rl.buckets {
		if bucket.idleSince(cutoff) {
			delete(rl.buckets, key)
		}
	}
	if evicted := before - len(rl.buckets); evicted > 0 {
		rl.logger.Debug("Evicted idle rate-limit buckets", zap.Int("evicted", evicted))
	}
}

// Stop stops the cleanup routine
func (rl *RateLimiter) Stop() {
	close(rl.stopCleanup)
}

func (rl *RateLimiter) bucketFor(key string) *TokenBucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, ok := rl.buckets[key]
	if !ok {
		refillRate := float64(rl.cfg.MessagesPerMinute) / 60.0
		bucket = NewTokenBucket(float64(rl.cfg.BurstSize), refillRate)
		rl.buckets[key] = bucket
	}
	return bucket
}

// Middleware limits chat messages per client. Clients are keyed by the
// session id carried in the request body when present, falling back to
// remote IP.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := clientKey(c)

		if !rl.bucketFor(key).Allow() {
			rl.logger.Warn("Rate limit exceeded", zap.String("key", key))
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many messages, please slow down.",
			})
			return
		}
		c.Next()
	}
}

// clientKey peeks the session id out of the request body without consuming
// it; the body is restored so the downstream handler can still bind it.
func clientKey(c *gin.Context) string {
	if c.Request.Body != nil {
		body, err := io.ReadAll(c.Request.Body)
		if err == nil {
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
			if id := sessionIDFromBody(c.ContentType(), body); id != "" {
				return id
			}
		}
	}
	return c.ClientIP()
}

func sessionIDFromBody(contentType string, body []byte) string {
	if strings.Contains(contentType, "json") {
		var req struct {
			SessionID string `json:"session_id"`
		}
		if json.Unmarshal(body, &req) == nil {
			return req.SessionID
		}
		return ""
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return ""
	}
	return values.Get("session_id")
}
