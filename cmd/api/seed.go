package main

import (
	"context"
	"errors"
	"fmt"

	"greenzone/internal/config"
	"greenzone/internal/seed"

	"github.com/spf13/cobra"
)

var seedSample bool

var seedCmd = &cobra.Command{
	Use:   "seed [file]",
	Short: "Load a product catalogue through the registry",
	Long: `Load a YAML product catalogue (optionally gzipped) and register its products
and supply-chain steps. Products that already exist are skipped, so a catalogue
can be applied more than once. With S3 enabled the file is looked up in the
seed bucket first and on local disk second.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().BoolVar(&seedSample, "sample", false, "apply the built-in sample catalogue")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	if seedSample == (len(args) == 1) {
		return errors.New("specify either a catalogue file or --sample")
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Store.Backend == config.BackendMemory {
		logger.Warn().Msg("seeding the in-memory store; records are discarded when the command exits")
	}

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := shutdownContext(cfg.Server.ShutdownTimeout)
		defer cancel()
		a.close(ctx)
	}()

	name := "sample"
	if len(args) == 1 {
		name = args[0]
	}
	return applySeed(cmd.Context(), a, name, seedSample)
}

// applySeed loads the named catalogue, or the built-in one when sample is
// set, and applies it to the registry.
func applySeed(ctx context.Context, a *app, name string, sample bool) error {
	var (
		catalogue *seed.Catalogue
		err       error
	)

	if sample {
		catalogue, err = seed.Sample()
	} else {
		catalogue, err = newSeedLoader(ctx, a).Load(ctx, name)
	}
	if err != nil {
		return fmt.Errorf("failed to load catalogue: %w", err)
	}

	report, err := seed.NewSeeder(a.registry, a.query, a.steps, a.logger).Apply(ctx, catalogue)
	if err != nil {
		return fmt.Errorf("failed to apply catalogue %s: %w", name, err)
	}

	a.logger.Info().
		Str("catalogue", name).
		Int("registered", report.Registered).
		Int("skipped", report.Skipped).
		Int("verified", report.Verified).
		Int("steps", report.Steps).
		Msg("catalogue applied")

	return nil
}

// newSeedLoader reads from local disk, trying S3 first when it is enabled.
func newSeedLoader(ctx context.Context, a *app) seed.Loader {
	fileLoader := seed.NewFileLoader(a.logger)
	if !a.cfg.S3.Enabled {
		a.logger.Info().Msg("using local file system for seed catalogues (S3 disabled)")
		return fileLoader
	}

	s3Loader, err := seed.NewS3Loader(ctx, a.cfg.S3.Bucket, a.cfg.AWS.Region, a.cfg.AWS.Endpoint, a.logger)
	if err != nil {
		a.logger.Warn().
			Err(err).
			Msg("failed to initialise S3 loader, falling back to local file system only")
		return fileLoader
	}

	return seed.NewFallbackLoader(s3Loader, fileLoader, a.cfg.S3.Prefix, true, a.logger)
}
