package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dealbook-dev/dealbook/internal/models"
)

// profile is the printable view of the current session.
type profile struct {
	ID         string            `json:"id" yaml:"id"`
	Email      string            `json:"email" yaml:"email"`
	Name       string            `json:"name" yaml:"name"`
	Role       string            `json:"role,omitempty" yaml:"role,omitempty"`
	Business   *models.Business  `json:"business,omitempty" yaml:"business,omitempty"`
	Businesses []models.Business `json:"businesses" yaml:"businesses"`
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(opts ...Option) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(cmd.Context(), newOptions(opts), format)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", FormatTable, "Output format: table, json or yaml")

	return cmd
}

func runWhoami(ctx context.Context, o *options, format string) error {
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

	p := profile{
		ID:         s.User.ID,
		Email:      s.User.Email,
		Name:       s.User.FullName(),
		Role:       s.User.Role,
		Business:   s.CurrentBusiness,
		Businesses: s.Businesses,
	}

	return render(a.out, format, p, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "NAME\t%s\n", p.Name)
		fmt.Fprintf(w, "EMAIL\t%s\n", p.Email)
		if p.Business != nil {
			fmt.Fprintf(w, "BUSINESS\t%s (%s)\n", p.Business.Name, p.Business.ID)
		}
		if p.Role != "" {
			fmt.Fprintf(w, "ROLE\t%s\n", p.Role)
		}
	})
}
