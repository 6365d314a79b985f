package main

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/pitch-agent/internal/config"
	"github.com/jonathan/pitch-agent/internal/server"
)

var (
	tokenLabel    string
	tokenClientID string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an API bearer token",
	Long:  `Signs a bearer token with auth.jwt_secret for a new (or the given) client ID.`,
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenLabel, "label", "", "Name recorded as the token subject")
	tokenCmd.Flags().StringVar(&tokenClientID, "client-id", "", "Client UUID (random when empty)")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return mintToken(cmd.OutOrStdout(), cfg, tokenClientID, tokenLabel)
}

func mintToken(w io.Writer, cfg *config.Config, clientID, label string) error {
	jwtCfg, err := cfg.JWT()
	if err != nil {
		return err
	}
	if jwtCfg == nil {
		return fmt.Errorf("auth.jwt_secret (PITCH_AUTH_JWT_SECRET) is not set")
	}

	id := uuid.New()
	if clientID != "" {
		id, err = uuid.Parse(clientID)
		if err != nil {
			return fmt.Errorf("invalid --client-id: %w", err)
		}
	}

	token, err := server.NewJWTService(jwtCfg).GenerateToken(id, label)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, token)
	return err
}
