package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/pitch-agent/internal/pipeline"
	"github.com/jonathan/pitch-agent/internal/server"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the classify, match, pitch, refine and chat operations.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (defaults to server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := pipeline.Build(ctx, cfg, pipeline.BuildOptions{}, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	var runs server.RunReader
	if rt.DB != nil {
		runs = rt.DB
	}
	opts, err := server.OptionsFromConfig(cfg, runs, logger)
	if err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}
	if opts.JWT == nil {
		logger.Warn("auth.jwt_secret not set, API is unauthenticated")
	}
	if rt.Corpus != nil {
		logger.Info("portfolio loaded",
			zap.Int("entries", rt.Corpus.Len()),
			zap.Int("embedded", rt.Corpus.Embedded()))
	}

	return server.New(rt.Service, opts).Start(ctx)
}
