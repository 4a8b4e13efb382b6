package main

import (
	"context"

	"github.com/spf13/cobra"

	httptransport "profitshare/contexts/finance-core/distribution-engine/transport/http"
	"profitshare/internal/app/bootstrap"
)

func init() {
	rootCmd.AddCommand(referralCmd)
	referralCmd.Flags().String("trigger", "first_deposit", "Trigger event: signup, email_verified, first_deposit or kyc_approved")
}

var referralCmd = &cobra.Command{
	Use:   "referral REFERRER_ID REFERRED_ID",
	Short: "Report a referral trigger",
	Long:  `Credit the referrer once for the referred user when the trigger qualifies.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		trigger, _ := cmd.Flags().GetString("trigger")
		return withEngine(cmd, func(ctx context.Context, engine *bootstrap.Engine) error {
			resp, err := engine.Module.Handler.ReferralEventHandler(ctx, actorID, httptransport.ReferralEventRequest{
				ReferrerID:   args[0],
				ReferredID:   args[1],
				TriggerEvent: trigger,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		})
	},
}
