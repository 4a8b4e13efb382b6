package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	postgresadapter "profitshare/contexts/finance-core/distribution-engine/adapters/postgres"
	"profitshare/internal/app/bootstrap"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the distribution tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withEngine(cmd, func(_ context.Context, engine *bootstrap.Engine) error {
			if err := postgresadapter.AutoMigrate(engine.Database.DB); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", engine.Database.Driver)
			return nil
		})
	},
}
