package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Itish41/DocIntel/initializers"
)

var (
	migrationsDir string
	rollbackSteps int
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back database migrations",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		dir := cfg.Database.MigrationsDir
		if migrationsDir != "" {
			dir = migrationsDir
		}

		db, err := initializers.ConnectDB(cfg.Database, verbose)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}

		direction := "up"
		if len(args) == 1 {
			direction = args[0]
		}
		switch direction {
		case "up":
			return initializers.Migrate(db, dir)
		case "down":
			return initializers.Rollback(db, dir, rollbackSteps)
		default:
			return fmt.Errorf("unknown direction %q: use up or down", direction)
		}
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsDir, "dir", "", "migrations directory (overrides database.migrations_dir)")
	migrateCmd.Flags().IntVar(&rollbackSteps, "steps", 1, "migrations to roll back with down")
	rootCmd.AddCommand(migrateCmd)
}
