// Package ratelimit enforces per-client, per-endpoint request limits
// using the token bucket algorithm.
package ratelimit

import (
	"sync"
	"time"
)

// bucket is a single token bucket. Tokens refill continuously at rate
// per second up to capacity.
type bucket struct {
	mu       sync.Mutex
	capacity float64
	rate     float64
	tokens   float64
	refilled time.Time
	lastUsed time.Time
}

func newBucket(capacity int, rate float64) *bucket {
	now := time.Now()
	return &bucket{
		capacity: float64(capacity),
		rate:     rate,
		tokens:   float64(capacity),
		refilled: now,
		lastUsed: now,
	}
}

// refill credits tokens for the time elapsed since the last refill.
// Callers must hold mu.
func (b *bucket) refill(now time.Time) {
	b.tokens += now.Sub(b.refilled).Seconds() * b.rate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.refilled = now
}

// take consumes one token if available.
func (b *bucket) take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.refill(now)
	b.lastUsed = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// status reports the remaining whole tokens and when the bucket will be
// full again, without consuming anything.
func (b *bucket) status() (remaining int, reset time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.refill(now)

	remaining = int(b.tokens)
	reset = now
	if b.tokens < b.capacity {
		secondsUntilFull := (b.capacity - b.tokens) / b.rate
		reset = now.Add(time.Duration(secondsUntilFull * float64(time.Second)))
	}
	return remaining, reset
}

func (b *bucket) idleSince(cutoff time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUsed.Before(cutoff)
}

// Info describes the limiter's decision for one request.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// Limiter hands out token buckets keyed by client, path and method.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	config  *Config
	ticker  *time.Ticker
	stop    chan struct{}
}

// NewLimiter creates a limiter. A nil config enables limiting with the
// global defaults and no per-endpoint tiers.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = &Config{
			Enabled:         true,
			DefaultLimit:    1000,
			DefaultWindow:   time.Minute,
			CleanupInterval: 5 * time.Minute,
			Whitelist:       make(map[string]bool),
			Blacklist:       make(map[string]bool),
		}
	}

	l := &Limiter{
		buckets: make(map[string]*bucket),
		config:  config,
	}

	if config.Enabled && config.CleanupInterval > 0 {
		l.ticker = time.NewTicker(config.CleanupInterval)
		l.stop = make(chan struct{})
		go l.evictLoop()
	}

	return l
}

// Allow decides whether a request from clientID to the given path and
// method may proceed.
func (l *Limiter) Allow(clientID, path, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blacklist[clientID] {
		return false, Info{}
	}

	endpoint := MatchEndpoint(path, method, l.config.EndpointConfigs)
	if endpoint == nil {
		endpoint = &EndpointConfig{
			Limit:  l.config.DefaultLimit,
			Window: l.config.DefaultWindow,
			Burst:  l.config.DefaultLimit,
		}
	}
	if endpoint.Limit <= 0 {
		// Unlimited endpoint, e.g. the health check.
		return true, Info{Allowed: true}
	}

	b := l.bucketFor(clientID+":"+path+":"+method, endpoint)
	allowed := b.take()
	remaining, reset := b.status()

	info := Info{
		Allowed:   allowed,
		Limit:     endpoint.Limit,
		Remaining: remaining,
		ResetTime: reset,
	}
	if !allowed {
		if wait := time.Until(reset); wait > 0 {
			info.RetryAfter = wait
		}
	}
	return allowed, info
}

// bucketFor returns the bucket for key, creating it on first use.
func (l *Limiter) bucketFor(key string, endpoint *EndpointConfig) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[key]; ok {
		return b
	}

	burst := endpoint.Burst
	if burst <= 0 {
		burst = endpoint.Limit
	}
	b := newBucket(burst, float64(endpoint.Limit)/endpoint.Window.Seconds())
	l.buckets[key] = b
	return b
}

func (l *Limiter) evictLoop() {
	for {
		select {
		case <-l.ticker.C:
			l.evictIdle(time.Now().Add(-time.Hour))
		case <-l.stop:
			return
		}
	}
}

// evictIdle drops buckets not used since cutoff so long-lived processes
// do not accumulate buckets for one-off clients.
func (l *Limiter) evictIdle(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, b := range l.buckets {
		if b.idleSince(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Stop halts the background eviction goroutine.
func (l *Limiter) Stop() {
	if l.ticker != nil {
		l.ticker.Stop()
	}
	if l.stop != nil {
		close(l.stop)
	}
}
