package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/pitch-agent/internal/pipeline"
	"github.com/jonathan/pitch-agent/internal/types"
)

var (
	chatWeb        bool
	chatIndustries []string
)

var chatCmd = &cobra.Command{
	Use:   "chat <customer> <question>",
	Short: "Ask a question about a customer",
	Args:  cobra.ExactArgs(2),
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatWeb, "web", false, "Search the web before answering")
	chatCmd.Flags().StringSliceVar(&chatIndustries, "industry", nil, "Known industries of the customer")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
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

	reply, err := rt.Service.Chat(ctx, types.ChatRequest{
		Customer:   args[0],
		Message:    args[1],
		Industries: chatIndustries,
		Flags:      types.ChatFlags{WebSearch: chatWeb},
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(w, reply.Reply)
	if len(reply.WebRefs) > 0 {
		_, _ = fmt.Fprintln(w, "\nSources:")
		for _, ref := range reply.WebRefs {
			_, _ = fmt.Fprintf(w, "  - %s (%s)\n", ref.Title, ref.URL)
		}
	}
	return nil
}
