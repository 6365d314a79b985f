package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/pitch-agent/internal/observability"
	"github.com/jonathan/pitch-agent/internal/pipeline"
	"github.com/jonathan/pitch-agent/internal/types"
)

// matchFlags are the filters shared by the match and pitch commands.
type matchFlags struct {
	industry   string
	technology string
	focus      string
	website    string
	limit      int
}

func (f *matchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.industry, "industry", "", "Industry filter (defaults to the detected industry)")
	cmd.Flags().StringVar(&f.technology, "technology", "", "Comma separated technologies to boost")
	cmd.Flags().StringVar(&f.focus, "focus", "", "Focus area to research")
	cmd.Flags().StringVar(&f.website, "website", "", "Customer website to scrape")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Maximum matches to return (defaults to 6, at most 20)")
}

// request builds the match request. A limit is only sent when the flag was
// set, so the service default applies otherwise.
func (f *matchFlags) request(cmd *cobra.Command, customer string) types.MatchRequest {
	req := types.MatchRequest{
		Customer:   customer,
		Industry:   f.industry,
		Technology: f.technology,
		Focus:      f.focus,
		Website:    f.website,
	}
	if cmd.Flags().Changed("limit") {
		limit := f.limit
		req.Limit = &limit
	}
	return req
}

var (
	matchOpts matchFlags
	matchJSON bool
)

var matchCmd = &cobra.Command{
	Use:   "match <customer>",
	Short: "Research a customer and rank matching portfolio engagements",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMatch,
}

func init() {
	matchOpts.register(matchCmd)
	matchCmd.Flags().BoolVar(&matchJSON, "json", false, "Print JSON instead of summary boxes")
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
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
	rt, err := pipeline.Build(ctx, cfg, pipeline.BuildOptions{}, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	out, err := rt.Service.Matches(ctx, matchOpts.request(cmd, strings.Join(args, " ")), nil)
	if err != nil {
		return err
	}
	if matchJSON {
		return writeJSON(cmd.OutOrStdout(), out)
	}
	printMatchOutcome(observability.NewPrinter(cmd.OutOrStdout()), out)
	return nil
}

func printMatchOutcome(p *observability.Printer, out *pipeline.MatchOutcome) {
	p.PrintClassification(out.Intelligence.Customer, types.IndustryClassification{
		Industry:   out.DetectedIndustry,
		Confidence: out.IndustryConfidence,
	})
	p.PrintIntelligence(out.Intelligence)
	p.PrintMatches(out.Rows)
}
