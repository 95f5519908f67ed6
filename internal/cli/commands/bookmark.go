package commands

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dealbook-dev/dealbook/internal/bookmarks"
)

// NewBookmarkCmd creates the bookmark command group
func NewBookmarkCmd(opts ...Option) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bookmark",
		Aliases: []string{"bm"},
		Short:   "Manage bookmarked deals",
		Long: `Manage bookmarked deals.

When logged out, bookmarks are kept on this device and uploaded to your
account at the next login.`,
	}

	cmd.AddCommand(newBookmarkAddCmd(opts))
	cmd.AddCommand(newBookmarkRemoveCmd(opts))
	cmd.AddCommand(newBookmarkListCmd(opts))

	return cmd
}

func newBookmarkAddCmd(opts []Option) *cobra.Command {
	return &cobra.Command{
		Use:   "add <deal-id>...",
		Short: "Bookmark one or more deals",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBookmarkAdd(cmd.Context(), newOptions(opts), args)
		},
	}
}

func newBookmarkRemoveCmd(opts []Option) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <deal-id>",
		Aliases: []string{"remove"},
		Short:   "Remove a bookmarked deal",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBookmarkRemove(cmd.Context(), newOptions(opts), args[0])
		},
	}
}

func newBookmarkListCmd(opts []Option) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List bookmarked deals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBookmarkList(cmd.Context(), newOptions(opts), format)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", FormatTable, "Output format: table, json or yaml")

	return cmd
}

func runBookmarkAdd(ctx context.Context, o *options, dealIDs []string) error {
	a, err := newApp(ctx, o)
	if err != nil {
		return err
	}
	defer a.Close()

	guest := !a.sessions.Snapshot().Authenticated()

	for _, id := range dealIDs {
		if _, err := a.bookmarks.Add(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "✓ Bookmarked %s\n", id)
	}

	if guest {
		fmt.Fprintln(a.out, "\nSaved on this device. Log in to keep them in your account: dealbook login")
	}
	return nil
}

func runBookmarkRemove(ctx context.Context, o *options, dealID string) error {
	a, err := newApp(ctx, o)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.bookmarks.Remove(ctx, dealID); err != nil {
		if errors.Is(err, bookmarks.ErrNotBookmarked) {
			return fmt.Errorf("deal %s is not bookmarked", dealID)
		}
		return err
	}

	fmt.Fprintf(a.out, "✓ Removed %s\n", dealID)
	return nil
}

func runBookmarkList(ctx context.Context, o *options, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	a, err := newApp(ctx, o)
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.bookmarks.List(ctx)
	if err != nil {
		return err
	}

	if len(list) == 0 && format == FormatTable {
		fmt.Fprintln(a.out, "No bookmarks found.")
		fmt.Fprintln(a.out, "\nBookmark a deal with: dealbook bookmark add <deal-id>")
		return nil
	}

	return render(a.out, format, list, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "DEAL\tBOOKMARK\tCREATED AT")
		fmt.Fprintln(w, "────\t────────\t──────────")
		for _, b := range list {
			id, created := b.ID, ""
			if id == "" {
				id = "(local)"
			}
			if b.CreatedAt != nil {
				created = b.CreatedAt.Local().Format(time.DateTime)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", b.Deal, id, created)
		}
	})
}
