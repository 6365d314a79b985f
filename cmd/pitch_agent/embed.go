package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/pitch-agent/internal/pipeline"
)

var embedRefresh bool

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Load the portfolio and build its embedding cache",
	Long: `Loads portfolio.path, embeds every entry that is not already cached and stores
the vectors in the database (when configured) or portfolio.cache_path. Run it
after editing the portfolio so the server starts without re-embedding.`,
	Args: cobra.NoArgs,
	RunE: runEmbed,
}

func init() {
	embedCmd.Flags().BoolVar(&embedRefresh, "refresh", false, "Re-embed every entry even when the cache matches")
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	rt, err := pipeline.Build(context.Background(), cfg, pipeline.BuildOptions{RefreshEmbeddings: embedRefresh}, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.Embedding == nil {
		return fmt.Errorf("embedding provider %q is unavailable", cfg.Embedding.Provider)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Embedded %d of %d portfolio entries with %s\n",
		rt.Corpus.Embedded(), rt.Corpus.Len(), rt.Corpus.Model())
	if rt.Corpus.Embedded() < rt.Corpus.Len() {
		return fmt.Errorf("%d entries could not be embedded", rt.Corpus.Len()-rt.Corpus.Embedded())
	}
	return nil
}
