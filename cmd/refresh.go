package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/countrycache/countrycache/internal/app"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run one refresh cycle against the configured store and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := app.New(ctx, *cfg, Version)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		result, err := a.Pipeline.Refresh(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "run %s: %d countries (%d inserted, %d updated, %d deleted, %d skipped) in %s\n",
			result.RunID, result.Records, result.Stats.Inserted, result.Stats.Updated,
			result.Stats.Deleted, result.Skipped, result.Took.Round(time.Millisecond))
		if len(result.Warnings) > 0 {
			fmt.Fprintf(out, "warnings: %s\n", strings.Join(result.Warnings, "; "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
