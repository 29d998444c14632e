package main

import (
	"fmt"

	"greenzone/internal/config"
	"greenzone/internal/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		if cfg.Store.Backend != config.BackendPostgres {
			return fmt.Errorf("migrate requires the %s store backend (got %s)", config.BackendPostgres, cfg.Store.Backend)
		}

		return database.Migrate(cfg.Database.ConnectionString(), logger)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
