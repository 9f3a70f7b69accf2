package cli

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report [report_id]",
	Short: "Print a persisted error report",
	Args:  cobra.ExactArgs(1),
	Run:   runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	app := loadApp(ctx)
	defer func() {
		_ = app.Stop(ctx)
	}()

	report, err := app.Report(ctx, args[0])
	if err != nil {
		slog.Error("Failed to load report", "report_id", args[0], "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)
}
