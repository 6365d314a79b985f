// Package config loads the service configuration from defaults, an optional
// YAML file and PITCH_ prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jonathan/pitch-agent/internal/embedding"
	"github.com/jonathan/pitch-agent/internal/llm"
	"github.com/jonathan/pitch-agent/internal/search"
)

// EnvPrefix prefixes every environment override, e.g. PITCH_SERVER_PORT.
const EnvPrefix = "PITCH_"

// ConfigPathEnv names a YAML file to load when no path is given explicitly.
const ConfigPathEnv = "PITCH_CONFIG"

// Search engine names accepted in search.engines.
const (
	EngineDuckDuckGo = "duckduckgo"
	EngineGoogle     = "google"
	EngineSerpAPI    = "serpapi"
)

// Config is the full service configuration.
type Config struct {
	Firm      string           `koanf:"firm"`
	Server    ServerConfig     `koanf:"server"`
	LLM       LLMConfig        `koanf:"llm"`
	Search    SearchConfig     `koanf:"search"`
	Embedding embedding.Config `koanf:"embedding"`
	Portfolio PortfolioConfig  `koanf:"portfolio"`
	Database  DatabaseConfig   `koanf:"database"`
	Auth      AuthConfig       `koanf:"auth"`
	RateLimit RateLimitConfig  `koanf:"ratelimit"`
	Log       LogConfig        `koanf:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port           int           `koanf:"port"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// LLMConfig configures text generation.
type LLMConfig struct {
	APIKey        string        `koanf:"api_key"`
	ModelLite     string        `koanf:"model_lite"`
	ModelStandard string        `koanf:"model_standard"`
	ModelAdvanced string        `koanf:"model_advanced"`
	Temperature   float32       `koanf:"temperature"`
	CallTimeout   time.Duration `koanf:"call_timeout"`
}

// SearchConfig configures the engine cascade. Engines lists engine names in
// priority order; engines missing credentials are skipped at startup.
type SearchConfig struct {
	Engines          []string      `koanf:"engines"`
	EngineTimeout    time.Duration `koanf:"engine_timeout"`
	FailureThreshold int           `koanf:"failure_threshold"`
	GoogleAPIKey     string        `koanf:"google_api_key"`
	GoogleCX         string        `koanf:"google_cx"`
	SerpAPIKey       string        `koanf:"serpapi_key"`
	UseBrowser       bool          `koanf:"use_browser"`
}

// PortfolioConfig locates the portfolio corpus and its embedding cache.
type PortfolioConfig struct {
	Path      string `koanf:"path"`
	CachePath string `koanf:"cache_path"`
}

// DatabaseConfig enables run recording and the shared embedding cache.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// AuthConfig enables bearer-token auth when JWTSecret is set.
type AuthConfig struct {
	JWTSecret       string `koanf:"jwt_secret"`
	ExpirationHours int    `koanf:"expiration_hours"`
}

// RateLimitConfig configures the per-client limiter.
type RateLimitConfig struct {
	Enabled       bool          `koanf:"enabled"`
	DefaultLimit  int           `koanf:"default_limit"`
	DefaultWindow time.Duration `koanf:"default_window"`
	Whitelist     []string      `koanf:"whitelist"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	models := llm.DefaultConfig().Models
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			RequestTimeout: 60 * time.Second,
		},
		LLM: LLMConfig{
			ModelLite:     models[llm.TierLite],
			ModelStandard: models[llm.TierStandard],
			ModelAdvanced: models[llm.TierAdvanced],
			Temperature:   0.2,
			CallTimeout:   llm.DefaultCallTimeout,
		},
		Search: SearchConfig{
			Engines:          []string{EngineSerpAPI, EngineGoogle, EngineDuckDuckGo},
			EngineTimeout:    search.DefaultEngineTimeout,
			FailureThreshold: search.DefaultFailureThreshold,
		},
		Embedding: embedding.DefaultConfig(),
		Portfolio: PortfolioConfig{
			Path:      "data/portfolio.xlsx",
			CachePath: "data/portfolio_embeddings.json",
		},
		Auth: AuthConfig{ExpirationHours: 24},
		RateLimit: RateLimitConfig{
			Enabled:       true,
			DefaultLimit:  1000,
			DefaultWindow: time.Minute,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// Load layers defaults, the YAML file at path (or $PITCH_CONFIG) and PITCH_
// environment variables, in increasing precedence. The first underscore after
// the prefix separates section from key: PITCH_SEARCH_ENGINE_TIMEOUT sets
// search.engine_timeout. GEMINI_API_KEY and DATABASE_URL are honoured as
// fallbacks.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.Replace(s, "_", ".", 1)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	return cfg, nil
}

// Validate checks value ranges. Missing credentials are not errors here;
// commands that need them check for themselves.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config error: 'server.port' must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("config error: 'server.request_timeout' must be positive")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("config error: 'llm.temperature' must be between 0 and 2")
	}
	if len(c.Search.Engines) == 0 {
		return fmt.Errorf("config error: 'search.engines' must name at least one engine")
	}
	known := []string{EngineDuckDuckGo, EngineGoogle, EngineSerpAPI}
	for _, name := range c.Search.Engines {
		if !slices.Contains(known, name) {
			return fmt.Errorf("config error: unknown search engine %q", name)
		}
	}
	switch c.Embedding.Provider {
	case embedding.ProviderGemini, embedding.ProviderOllama:
	default:
		return fmt.Errorf("config error: unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Portfolio.Path == "" {
		return fmt.Errorf("config error: 'portfolio.path' is required")
	}
	if c.Auth.JWTSecret != "" && c.Auth.ExpirationHours < 1 {
		return fmt.Errorf("config error: 'auth.expiration_hours' must be at least 1")
	}
	return nil
}

// LLMSettings converts the section into the generation client's config.
func (c *Config) LLMSettings() *llm.Config {
	cfg := llm.DefaultConfig()
	cfg.Temperature = c.LLM.Temperature
	cfg.CallTimeout = c.LLM.CallTimeout
	for tier, model := range map[llm.ModelTier]string{
		llm.TierLite:     c.LLM.ModelLite,
		llm.TierStandard: c.LLM.ModelStandard,
		llm.TierAdvanced: c.LLM.ModelAdvanced,
	} {
		if model != "" {
			cfg = cfg.WithModel(tier, model)
		}
	}
	return cfg
}

// CascadeSettings converts the section into the orchestrator's config.
func (c *Config) CascadeSettings() search.Config {
	cfg := search.DefaultConfig()
	cfg.EngineTimeout = c.Search.EngineTimeout
	cfg.FailureThreshold = c.Search.FailureThreshold
	return cfg
}
