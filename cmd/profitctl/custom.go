package main

import (
	"context"

	"github.com/spf13/cobra"

	httptransport "profitshare/contexts/finance-core/distribution-engine/transport/http"
	"profitshare/internal/app/bootstrap"
)

func init() {
	rootCmd.AddCommand(customCmd)
}

var customCmd = &cobra.Command{
	Use:   "custom SUBJECT_ID RATE_PERCENT",
	Short: "Credit one account at a custom daily rate",
	Long: `Apply RATE_PERCENT to the account deposit balance. Rejected when the
account already received today's profit share.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, engine *bootstrap.Engine) error {
			resp, err := engine.Module.Handler.CustomDistributionHandler(ctx, actorID, httptransport.CustomDistributionRequest{
				SubjectID:   args[0],
				RatePercent: args[1],
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		})
	},
}
