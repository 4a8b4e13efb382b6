package main

import (
	"context"

	"github.com/spf13/cobra"

	httptransport "profitshare/contexts/finance-core/distribution-engine/transport/http"
	"profitshare/internal/app/bootstrap"
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("period", "", "Period key YYYY-MM-DD (defaults to today in UTC)")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daily profit share",
	Long: `Credit every eligible account once for the period. Accounts already
credited for the period are skipped, so a failed run can be repeated.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		period, _ := cmd.Flags().GetString("period")
		return withEngine(cmd, func(ctx context.Context, engine *bootstrap.Engine) error {
			resp, err := engine.Module.Handler.RunDistributionHandler(ctx, actorID, httptransport.RunDistributionRequest{
				PeriodKey: period,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		})
	},
}
