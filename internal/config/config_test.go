package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/pitch-agent/internal/embedding"
	"github.com/jonathan/pitch-agent/internal/llm"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{EngineSerpAPI, EngineGoogle, EngineDuckDuckGo}, cfg.Search.Engines)
	assert.Equal(t, "gemini-key", cfg.LLM.APIKey)
	assert.Empty(t, cfg.Database.URL)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
firm: Contoso
server:
  port: 9090
  request_timeout: 45s
search:
  engines: [duckduckgo]
  engine_timeout: 5s
embedding:
  provider: ollama
  model: nomic-embed-text
portfolio:
  path: /data/portfolio.json
`)
	t.Setenv("PITCH_SERVER_PORT", "9191")
	t.Setenv("PITCH_LLM_API_KEY", "env-key")
	t.Setenv("PITCH_SEARCH_FAILURE_THRESHOLD", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Contoso", cfg.Firm)
	assert.Equal(t, 9191, cfg.Server.Port, "env overrides file")
	assert.Equal(t, 45*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{EngineDuckDuckGo}, cfg.Search.Engines)
	assert.Equal(t, 5*time.Second, cfg.Search.EngineTimeout)
	assert.Equal(t, 3, cfg.Search.FailureThreshold)
	assert.Equal(t, "env-key", cfg.LLM.APIKey)
	assert.Equal(t, embedding.ProviderOllama, cfg.Embedding.Provider)
	assert.Equal(t, "/data/portfolio.json", cfg.Portfolio.Path)
	assert.Equal(t, "info", cfg.Log.Level, "defaults survive partial files")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad timeout", func(c *Config) { c.Server.RequestTimeout = 0 }, "request_timeout"},
		{"bad temperature", func(c *Config) { c.LLM.Temperature = 3 }, "llm.temperature"},
		{"no engines", func(c *Config) { c.Search.Engines = nil }, "at least one engine"},
		{"unknown engine", func(c *Config) { c.Search.Engines = []string{"bing"} }, `unknown search engine "bing"`},
		{"unknown embedding provider", func(c *Config) { c.Embedding.Provider = "openai" }, "embedding provider"},
		{"no portfolio", func(c *Config) { c.Portfolio.Path = "" }, "portfolio.path"},
		{"auth without expiry", func(c *Config) {
			c.Auth.JWTSecret = "0123456789abcdef"
			c.Auth.ExpirationHours = 0
		}, "expiration_hours"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLLMSettings(t *testing.T) {
	cfg := Default()
	cfg.LLM.ModelAdvanced = "custom-pro"
	cfg.LLM.ModelLite = ""

	settings := cfg.LLMSettings()
	assert.Equal(t, "custom-pro", settings.GetModel(llm.TierAdvanced))
	assert.Equal(t, llm.DefaultConfig().Models[llm.TierLite], settings.GetModel(llm.TierLite))
	assert.Equal(t, cfg.LLM.CallTimeout, settings.CallTimeout)
}

func TestCascadeSettings(t *testing.T) {
	cfg := Default()
	cfg.Search.EngineTimeout = 3 * time.Second
	assert.Equal(t, 3*time.Second, cfg.CascadeSettings().EngineTimeout)
}
