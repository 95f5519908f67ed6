package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dealbook-dev/dealbook/internal/cli/businessselect"
	"github.com/dealbook-dev/dealbook/internal/models"
)

// NewBusinessCmd creates the business command group
func NewBusinessCmd(opts ...Option) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "business",
		Aliases: []string{"biz"},
		Short:   "List or switch the business you act for",
	}

	cmd.AddCommand(newBusinessListCmd(opts))
	cmd.AddCommand(newBusinessSwitchCmd(opts))

	return cmd
}

func newBusinessListCmd(opts []Option) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List your businesses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBusinessList(cmd.Context(), newOptions(opts), format)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", FormatTable, "Output format: table, json or yaml")

	return cmd
}

func newBusinessSwitchCmd(opts []Option) *cobra.Command {
	return &cobra.Command{
		Use:   "switch [id-or-name]",
		Short: "Switch the current business (prompts if not specified)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var target string
			if len(args) == 1 {
				target = args[0]
			}
			return runBusinessSwitch(cmd.Context(), newOptions(opts), target)
		},
	}
}

func runBusinessList(ctx context.Context, o *options, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	a, err := newApp(ctx, o)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.requireSession()
	if err != nil {
		return err
	}

	if len(s.Businesses) == 0 && format == FormatTable {
		fmt.Fprintln(a.out, "No businesses linked to this account.")
		return nil
	}

	businesses := s.Businesses
	if businesses == nil {
		businesses = []models.Business{}
	}

	return render(a.out, format, businesses, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tNAME\tCURRENT")
		fmt.Fprintln(w, "──\t────\t───────")
		for _, b := range businesses {
			current := ""
			if s.CurrentBusiness != nil && s.CurrentBusiness.ID == b.ID {
				current = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", b.ID, b.Name, current)
		}
	})
}

func runBusinessSwitch(ctx context.Context, o *options, target string) error {
	a, err := newApp(ctx, o)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.requireSession()
	if err != nil {
		return err
	}

	b, err := businessselect.ResolveBusiness(s.Businesses, s.CurrentBusiness, target, o.promptBusiness)
	if err != nil {
		return err
	}

	if _, err := a.sessions.SwitchBusiness(b.ID); err != nil {
		return fmt.Errorf("failed to switch business: %w", err)
	}

	fmt.Fprintf(a.out, "✓ Now acting for %s (%s)\n", b.Name, b.ID)
	return nil
}
