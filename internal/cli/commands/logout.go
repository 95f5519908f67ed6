package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd(opts ...Option) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the stored session",
		Long: `Log out and forget the stored session.

Deals bookmarked as a guest are kept on this device.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.Context(), newOptions(opts))
		},
	}
}

func runLogout(ctx context.Context, o *options) error {
	a, err := newApp(ctx, o)
	if err != nil {
		return err
	}
	defer a.Close()

	wasLoggedIn := a.sessions.Snapshot().Authenticated()

	if err := a.sessions.Logout(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	if wasLoggedIn {
		fmt.Fprintln(a.out, "✓ Logged out.")
	} else {
		fmt.Fprintln(a.out, "Not logged in.")
	}
	return nil
}
