package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/idcvault/idcvault/internal/backup"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up the identity store into a snapshot",
	Run:   runBackup,
}

func init() {
	rootCmd.AddCommand(backupCmd)
}

func runBackup(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	app := loadApp(ctx)
	defer func() {
		_ = app.Stop(ctx)
	}()

	result := app.Backup(ctx)
	printResult(result)
	if !result.Success {
		os.Exit(1)
	}
}

// printResult renders a terminal operation result for the console.
func printResult(result *backup.OperationResult) {
	fmt.Printf("operation: %s\n", result.OperationID)
	fmt.Printf("result:    %s\n", result.Message)
	if result.SnapshotID != "" {
		fmt.Printf("snapshot:  %s\n", result.SnapshotID)
	}

	if result.Partial != nil {
		fmt.Printf("partial:   %s\n", result.Partial.Message)
		if len(result.Partial.MissingParts) > 0 {
			fmt.Printf("missing:   %v\n", result.Partial.MissingParts)
		}
	}
	if result.Rollback != nil {
		fmt.Printf("rollback:  reverted %d of %d changes\n",
			result.Rollback.RevertedCount, result.Rollback.TotalCount)
	}

	for _, rec := range result.Errors {
		fmt.Printf("error:     %v\n", rec)
		for _, step := range rec.RemediationSteps {
			fmt.Printf("  - %s\n", step)
		}
	}
	if result.ReportID != "" {
		fmt.Printf("report:    %s (idcvault report %s)\n", result.ReportID, result.ReportID)
	}
}
