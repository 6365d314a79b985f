package ratelimit

import (
	"net/http"
	"time"

	"github.com/jonathan/pitch-agent/internal/config"
)

// EndpointConfig limits one endpoint.
type EndpointConfig struct {
	Path   string        // exact path, or a prefix when it ends with "/"
	Method string        // HTTP method
	Limit  int           // requests per Window; 0 means unlimited
	Window time.Duration // refill window
	Burst  int           // bucket capacity, defaults to Limit
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// DefaultConfig is used when no configuration is given.
func DefaultConfig() *Config {
	return FromConfig(config.Default().RateLimit)
}

// FromConfig converts the service's ratelimit section.
func FromConfig(c config.RateLimitConfig) *Config {
	whitelist := make(map[string]bool, len(c.Whitelist))
	for _, ip := range c.Whitelist {
		if ip != "" {
			whitelist[ip] = true
		}
	}
	return &Config{
		Enabled:         c.Enabled,
		DefaultLimit:    c.DefaultLimit,
		DefaultWindow:   c.DefaultWindow,
		CleanupInterval: 5 * time.Minute,
		Whitelist:       whitelist,
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the endpoint limits. Generation endpoints
// call the model on every request and get the strictest budgets.
func DefaultEndpointConfigs() []EndpointConfig {
	post := http.MethodPost
	return []EndpointConfig{
		// Multi-call pipelines: search cascade, extraction and ranking.
		{Path: "/portfolio/matches", Method: post, Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/portfolio/matches/stream", Method: post, Limit: 30, Window: time.Hour, Burst: 5},

		// Single advanced-tier generations.
		{Path: "/pitch", Method: post, Limit: 60, Window: time.Hour, Burst: 5},
		{Path: "/pitch/refine", Method: post, Limit: 120, Window: time.Hour, Burst: 10},

		// Cheap generations.
		{Path: "/industry", Method: post, Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/chat", Method: post, Limit: 60, Window: time.Minute, Burst: 10},
	}
}
