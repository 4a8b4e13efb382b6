package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"profitshare/internal/app/bootstrap"
)

// profitctl drives the distribution engine directly against the configured
// database. It reads the same environment as the api and worker processes.

var actorID string

var rootCmd = &cobra.Command{
	Use:           "profitctl",
	Short:         "Operate profit share distribution",
	Long:          `Operator commands for daily profit share runs, custom credits, referral rewards and settings.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&actorID, "actor", "profitctl", "Administrator id recorded in audit logs")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "profitctl: %v\n", err)
		os.Exit(1)
	}
}

// withEngine builds the engine for one command and closes it afterwards.
func withEngine(cmd *cobra.Command, fn func(ctx context.Context, engine *bootstrap.Engine) error) error {
	ctx := cmd.Context()
	engine, err := bootstrap.BuildEngine(ctx, "profitctl")
	if err != nil {
		return err
	}
	defer engine.Close()
	return fn(ctx, engine)
}

func printJSON(cmd *cobra.Command, payload any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}
