package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/pitch-agent/internal/observability"
	"github.com/jonathan/pitch-agent/internal/pipeline"
	"github.com/jonathan/pitch-agent/internal/types"
)

var classifyJSON bool

var classifyCmd = &cobra.Command{
	Use:   "classify <customer>",
	Short: "Detect a customer's industry",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClassify,
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "Print JSON instead of a summary box")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	rt, err := pipeline.Build(ctx, cfg, pipeline.BuildOptions{SkipCorpus: true}, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	customer := strings.Join(args, " ")
	cls, err := rt.Service.Classify(ctx, types.ClassifyRequest{Customer: customer})
	if err != nil {
		return err
	}
	if classifyJSON {
		return writeJSON(cmd.OutOrStdout(), cls)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintClassification(customer, cls)
	return nil
}
