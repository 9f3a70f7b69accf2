package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var dryRun bool

var restoreCmd = &cobra.Command{
	Use:   "restore [snapshot_id]",
	Short: "Restore a snapshot back into the identity store",
	Args:  cobra.ExactArgs(1),
	Run:   runRestore,
}

func init() {
	restoreCmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview the apply plan without changing anything")
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	app := loadApp(ctx)
	defer func() {
		_ = app.Stop(ctx)
	}()

	result := app.Restore(ctx, args[0], dryRun)
	printResult(result)
	if !result.Success {
		os.Exit(1)
	}
}
