package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/pitch-agent/internal/observability"
	"github.com/jonathan/pitch-agent/internal/pipeline"
	"github.com/jonathan/pitch-agent/internal/types"
)

var (
	pitchOpts   matchFlags
	pitchTop    int
	pitchRefine string
	pitchJSON   bool
)

var pitchCmd = &cobra.Command{
	Use:   "pitch <customer>",
	Short: "Research a customer and draft a pitch from the best matches",
	Long: `Runs the match pipeline, keeps the --top ranked engagements and composes a
pitch from them. --refine applies one round of refinement instructions to the
draft before printing it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPitch,
}

func init() {
	pitchOpts.register(pitchCmd)
	pitchCmd.Flags().IntVar(&pitchTop, "top", 3, "Number of top matches to pitch from")
	pitchCmd.Flags().StringVar(&pitchRefine, "refine", "", "Refinement instructions applied to the draft")
	pitchCmd.Flags().BoolVar(&pitchJSON, "json", false, "Print the draft as JSON")
	rootCmd.AddCommand(pitchCmd)
}

func runPitch(cmd *cobra.Command, args []string) error {
	if pitchTop <= 0 {
		return fmt.Errorf("--top must be positive, got %d", pitchTop)
	}
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

	customer := strings.Join(args, " ")
	out, err := rt.Service.Matches(ctx, pitchOpts.request(cmd, customer), nil)
	if err != nil {
		return err
	}
	rows := topRows(out.Rows, pitchTop)
	if len(rows) == 0 {
		return fmt.Errorf("no portfolio matches for %s", customer)
	}

	draft, err := rt.Service.BuildPitch(ctx, types.PitchRequest{
		Customer:         customer,
		SelectedRows:     rows,
		IntelligenceData: out.Intelligence,
	})
	if err != nil {
		return err
	}

	if strings.TrimSpace(pitchRefine) != "" {
		draft, err = rt.Service.Refine(ctx, types.RefineRequest{
			Customer:         customer,
			ShortPitch:       draft.ShortSummary,
			LongPitch:        draft.LongSummary,
			Sections:         draft.Sections,
			Instructions:     pitchRefine,
			ContextRows:      rows,
			IntelligenceData: out.Intelligence,
		})
		if err != nil {
			return err
		}
	}

	if pitchJSON {
		return writeJSON(cmd.OutOrStdout(), draft)
	}
	p := observability.NewPrinter(cmd.OutOrStdout())
	p.PrintMatches(rows)
	p.PrintPitch(draft)
	return nil
}

// topRows returns the first n rows that carry an entry.
func topRows(rows []types.MatchResult, n int) []types.MatchResult {
	out := make([]types.MatchResult, 0, n)
	for _, r := range rows {
		if len(out) == n {
			break
		}
		if r.Entry != nil {
			out = append(out, r)
		}
	}
	return out
}
