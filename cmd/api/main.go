package main

import (
	"fmt"
	"os"

	"greenzone/internal/config"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Build information injected via ldflags at build time.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "greenzone",
	Short:         "Agricultural product traceability registry",
	Long:          `greenzone registers agricultural products, tracks their ownership and verification, and serves their supply-chain history over HTTP.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration and builds the process logger.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, config.NewLogger(cfg.Logger), nil
}
