package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dealbook-dev/dealbook/internal/cli/commands"
	"github.com/dealbook-dev/dealbook/internal/config"
	"github.com/dealbook-dev/dealbook/internal/logger"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the dealbook command tree.
func NewRootCmd(opts ...commands.Option) *cobra.Command {
	var debug bool

	rootCmd := &cobra.Command{
		Use:   "dealbook",
		Short: "Dealbook - Your deals, bookmarked",
		Long: `Dealbook CLI - Log in to Dealbook and manage your bookmarked deals.

Bookmarks saved while logged out stay on this device and are uploaded to
your account when you log in.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level, format := "warn", "console"
			// A broken config is reported by the command itself
			if cfg, err := config.Load(); err == nil {
				level, format = cfg.Logging.Level, cfg.Logging.Format
			}
			if debug {
				level = "debug"
			}
			logger.Init(level, format)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log requests and state changes to stderr")

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dealbook version %s\n", version)
		},
	})

	// Add all subcommands
	rootCmd.AddCommand(commands.NewLoginCmd(opts...))
	rootCmd.AddCommand(commands.NewLogoutCmd(opts...))
	rootCmd.AddCommand(commands.NewWhoamiCmd(opts...))
	rootCmd.AddCommand(commands.NewBusinessCmd(opts...))
	rootCmd.AddCommand(commands.NewBookmarkCmd(opts...))
	rootCmd.AddCommand(commands.NewSyncCmd(opts...))

	return rootCmd
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
