package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/coursepilot/coursepilot/pkg/types"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	var institution string

	cmd := &cobra.Command{
		Use:   "status [institution]",
		Short: "Show sync status for catalog tuples",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				institution = args[0]
			}
			return runStatus(institution)
		},
	}
	return cmd
}

func runStatus(institution string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a, cleanup, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	metas, err := a.store.ListSyncMetadata(ctx, institution)
	if err != nil {
		return fmt.Errorf("listing sync metadata: %w", err)
	}
	if len(metas) == 0 {
		fmt.Println("No catalog tuples synced yet.")
		return nil
	}

	bold := color.New(color.Bold)
	_, _ = bold.Println("Catalog sync status:")
	fmt.Println()

	for _, meta := range metas {
		statusStr := string(meta.Status)
		switch meta.Status {
		case types.SyncSuccess:
			statusStr = color.GreenString(statusStr)
		case types.SyncFailed:
			statusStr = color.RedString(statusStr)
		case types.SyncInProgress:
			statusStr = color.CyanString(statusStr)
		}

		lastSync := "never"
		if !meta.LastSyncAt.IsZero() {
			lastSync = meta.LastSyncAt.Format(time.RFC3339)
		}
		fmt.Printf("  %-45s %-22s last sync %s\n",
			types.SyncTuple(meta.EntityType, meta.Term, meta.Institution), statusStr, lastSync)
		if meta.Status == types.SyncFailed && meta.LastError != "" {
			color.Red("    error: %s", meta.LastError)
		}
	}
	fmt.Println()
	return nil
}
