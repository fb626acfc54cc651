package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coursepilot/coursepilot/internal/commands"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "coursepilot",
		Short: "Resilient course catalog retrieval and schedule optimization",
		Long: `Coursepilot retrieves course catalog data through a cache, persistent
store, and circuit-breaker-guarded collector fallback chain, and builds
ranked, conflict-free schedules from the result. Every response discloses
its provenance so callers can tell fresh data from degraded data.`,
		Version: version,
	}

	root.AddCommand(
		commands.NewServeCmd(),
		commands.NewSyncCmd(),
		commands.NewStatusCmd(),
		commands.NewOptimizeCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
