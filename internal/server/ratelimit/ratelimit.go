// Package ratelimit provides rate limiting using a token bucket per client
// and endpoint.
package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// TokenBucket allows a number of requests per window, refilling at a steady
// rate up to a burst capacity.
type TokenBucket struct {
	capacity   int
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

func newTokenBucket(capacity int, refillRate float64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		refillRate: refillRate,
		tokens:     float64(capacity),
		lastRefill: time.Now(),
	}
}

// allow consumes a token when one is available.
func (tb *TokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)
	tb.tokens = min(float64(tb.capacity), tb.tokens+elapsed.Seconds()*tb.refillRate)
	tb.lastRefill = now

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// EndpointRule sets limits for one endpoint prefix and method.
type EndpointRule struct {
	Prefix string
	Method string
	Limit  int
	Window time.Duration
	Burst  int
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled       bool
	DefaultLimit  int
	DefaultWindow time.Duration
	Rules         []EndpointRule
}

// DefaultConfig tiers the orchestrator's endpoints: automation triggers are
// the expensive writes, interview mutations are moderate, and reads fall
// through to the default. Health checks are unlimited.
func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		Rules: []EndpointRule{
			{Prefix: "/jobs/", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
			{Prefix: "/interviews", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},
			{Prefix: "/interviews/", Method: "PATCH", Limit: 120, Window: time.Minute, Burst: 20},
			{Prefix: "/health", Method: "GET", Limit: 0},
		},
	}
}

// matchRule finds the first rule whose prefix and method match the request.
func matchRule(path, method string, rules []EndpointRule) *EndpointRule {
	for i := range rules {
		r := &rules[i]
		if r.Method != method {
			continue
		}
		if path == strings.TrimSuffix(r.Prefix, "/") || strings.HasPrefix(path, r.Prefix) {
			return r
		}
	}
	return nil
}

// Limiter manages per-client token buckets.
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*TokenBucket
	config  *Config
}

// NewLimiter creates a limiter with the given configuration.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = DefaultConfig()
	}
	return &Limiter{
		buckets: make(map[string]*TokenBucket),
		config:  config,
	}
}

// Allow reports whether a request from the client to the endpoint may proceed.
func (l *Limiter) Allow(clientID, path, method string) bool {
	if !l.config.Enabled {
		return true
	}

	limit := l.config.DefaultLimit
	window := l.config.DefaultWindow
	burst := limit
	if rule := matchRule(path, method, l.config.Rules); rule != nil {
		if rule.Limit <= 0 {
			return true
		}
		limit = rule.Limit
		window = rule.Window
		burst = rule.Burst
		if burst <= 0 {
			burst = limit
		}
	}

	key := clientID + ":" + path + ":" + method
	return l.getBucket(key, limit, window, burst).allow()
}

func (l *Limiter) getBucket(key string, limit int, window time.Duration, burst int) *TokenBucket {
	l.mu.RLock()
	bucket, exists := l.buckets[key]
	l.mu.RUnlock()
	if exists {
		return bucket
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.buckets[key]; ok {
		return existing
	}
	bucket = newTokenBucket(burst, float64(limit)/window.Seconds())
	l.buckets[key] = bucket
	return bucket
}
