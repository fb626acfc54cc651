package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/coursepilot/coursepilot/pkg/types"
)

// NewSyncCmd creates the sync command.
func NewSyncCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "sync [entity-type] [term] [institution]",
		Short: "Collect a catalog tuple from the external source and persist it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(types.EntityType(args[0]), args[1], args[2], timeout)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall sync timeout")
	return cmd
}

func runSync(et types.EntityType, term, institution string, timeout time.Duration) error {
	if !types.ValidEntityType(et) {
		return fmt.Errorf("unknown entity type %q (courses, sections, instructors)", et)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a, cleanup, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	tuple := types.SyncTuple(et, term, institution)
	fmt.Printf("Syncing %s...\n", tuple)

	if err := a.orch.Refresh(ctx, et, term, institution); err != nil {
		color.Red("Sync failed: %v", err)
		return err
	}

	meta, err := a.store.GetSyncMetadata(ctx, et, term, institution)
	if err == nil && meta != nil {
		color.Green("Sync complete ✓ (attempt %s)", meta.AttemptID)
	} else {
		color.Green("Sync complete ✓")
	}
	return nil
}
