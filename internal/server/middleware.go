package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// requestID propagates the caller's X-Request-ID or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"client_ip", c.ClientIP(),
			"duration", time.Since(start))
	}
}

// cors answers browser preflights and tags every response with the allowed origin.
func cors(allowed []string) gin.HandlerFunc {
	wildcard := len(allowed) == 0
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			wildcard = true
		}
		origins[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case wildcard:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "" && origins[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Headers", "Content-Type, "+requestIDHeader)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// clientLimiter keeps one token bucket per client, evicting idle clients.
type clientLimiter struct {
	limiters *expirable.LRU[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
}

func newClientLimiter(requestsPerMin, burst int) *clientLimiter {
	if burst <= 0 {
		burst = max(1, requestsPerMin/10)
	}
	return &clientLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](1000, nil, 5*time.Minute),
		rate:     rate.Limit(float64(requestsPerMin) / 60.0),
		burst:    burst,
	}
}

func (l *clientLimiter) Allow(key string) error {
	limiter, ok := l.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters.Add(key, limiter)
	}
	if !limiter.Allow() {
		return fmt.Errorf("rate limit exceeded for %s", key)
	}
	return nil
}

func rateLimit(l *clientLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := l.Allow(c.ClientIP()); err != nil {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody("Too many requests. Please slow down."))
			return
		}
		c.Next()
	}
}
