package main

import (
	"context"

	"github.com/spf13/cobra"

	"profitshare/internal/app/bootstrap"
)

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd)
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect distribution settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current tier tables and toggles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withEngine(cmd, func(ctx context.Context, engine *bootstrap.Engine) error {
			resp, err := engine.Module.Handler.GetSettingsHandler(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		})
	},
}
