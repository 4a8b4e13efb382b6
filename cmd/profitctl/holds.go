package main

import (
	"context"

	"github.com/spf13/cobra"

	httptransport "profitshare/contexts/finance-core/distribution-engine/transport/http"
	"profitshare/internal/app/bootstrap"
)

func init() {
	rootCmd.AddCommand(holdsCmd)
	holdsCmd.AddCommand(holdsReleaseCmd)
	holdsReleaseCmd.Flags().String("note", "", "Reason recorded with the release")
}

var holdsCmd = &cobra.Command{
	Use:   "holds",
	Short: "Manage credit holds placed by the ledger auditor",
}

var holdsReleaseCmd = &cobra.Command{
	Use:   "release SUBJECT_ID",
	Short: "Re-enable crediting for a held subject",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		note, _ := cmd.Flags().GetString("note")
		return withEngine(cmd, func(ctx context.Context, engine *bootstrap.Engine) error {
			resp, err := engine.Module.Handler.ReleaseHoldHandler(ctx, actorID, args[0], httptransport.ReleaseHoldRequest{
				Note: note,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		})
	},
}
