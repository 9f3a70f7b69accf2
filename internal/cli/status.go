package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List stored snapshots and tracked operations",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	app := loadApp(ctx)
	defer func() {
		_ = app.Stop(ctx)
	}()

	snapshots, err := app.Snapshots(ctx)
	if err != nil {
		slog.Error("Failed to list snapshots", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "SNAPSHOT\tSTATUS\tRECORDS\tCREATED")
	for _, s := range snapshots {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.ID, s.Status, s.RecordCount, s.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	_ = w.Flush()

	ops := app.Operations()
	if len(ops) == 0 {
		return
	}

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "OPERATION\tTYPE\tDONE\tOK\tCHANGES")
	for _, op := range ops {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%t\t%t\t%d\n", op.OperationID, op.OperationType, op.Completed, op.Succeeded, len(op.Changes))
	}
	_ = w.Flush()
}
