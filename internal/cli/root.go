// Package cli wires configuration, storage and providers into the locator
// commands.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set by Execute.
var Version = "dev"

// NewRootCommand returns the locator command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "locator",
		Short: "Resolve street addresses to coordinates",
		Long: `
locator resolves street addresses to coordinates by asking geocoding providers
in order and caching every outcome, including addresses no provider could find.
`,
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCommand(), newResolveCommand(), newMigrateCommand())

	return rootCmd
}

// Execute runs the root command until it finishes or the process receives an
// interrupt signal.
func Execute(version string) {
	Version = version

	// Create a context that will be canceled when an interrupt signal is received.
	// This allows for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
