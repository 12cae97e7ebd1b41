package main

import (
	"github.com/spf13/cobra"

	"github.com/campus-nfc/card-service/internal/persistence"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		mg, err := persistence.NewMigrator(cfg.Postgres.DSN, logger)
		if err != nil {
			return err
		}
		defer mg.Close() //nolint:errcheck
		return mg.Up()
	},
}

var downSteps int

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		mg, err := persistence.NewMigrator(cfg.Postgres.DSN, logger)
		if err != nil {
			return err
		}
		defer mg.Close() //nolint:errcheck
		return mg.Down(downSteps)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)

	migrateDownCmd.Flags().IntVar(&downSteps, "steps", 1, "number of migrations to roll back (0 rolls back all)")
}
