// Package main provides the pitch-agent CLI and HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/pitch-agent/internal/config"
	"github.com/jonathan/pitch-agent/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "pitch_agent",
	Short: "Presales intelligence and pitch generation",
	Long: `pitch_agent researches a prospective customer, ranks past engagements from the
portfolio against it and drafts a tailored pitch. Run it as an HTTP API with
"serve" or use the individual commands from the shell.

Configuration is read from --config (or $PITCH_CONFIG), then PITCH_ environment
variables; command-line flags override both.`,
	SilenceUsage: true,
}

var (
	configPath  string
	apiKey      string
	databaseURL string
	logLevel    string
	useBrowser  bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to a YAML config file")
	pf.StringVar(&apiKey, "api-key", "", "Gemini API key (defaults to llm.api_key or GEMINI_API_KEY)")
	pf.StringVar(&databaseURL, "db-url", "", "PostgreSQL URL for run recording and the embedding cache")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVar(&useBrowser, "use-browser", false, "Render company websites with headless Chrome")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration and applies the persistent flags that
// were set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	applyGlobalOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyGlobalOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("api-key") {
		cfg.LLM.APIKey = apiKey
	}
	if flags.Changed("db-url") {
		cfg.Database.URL = databaseURL
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("use-browser") {
		cfg.Search.UseBrowser = useBrowser
	}
}

// newLogger builds the command's logger. Logs go to stderr so command output
// on stdout stays clean.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
