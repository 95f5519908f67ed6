package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dealbook-dev/dealbook/internal/session"
)

// NewLoginCmd creates the login command
func NewLoginCmd(opts ...Option) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to your Dealbook account",
		Long: `Log in to your Dealbook account.

Deals bookmarked while logged out are uploaded to your account after a
successful login.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), newOptions(opts), email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set DEALBOOK_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set DEALBOOK_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(ctx context.Context, o *options, email, password string) error {
	// Check for environment variables (useful for scripts)
	if email == "" {
		email = os.Getenv("DEALBOOK_EMAIL")
	}
	if password == "" {
		password = os.Getenv("DEALBOOK_PASSWORD")
	}

	if email == "" {
		return fmt.Errorf("email is required (use --email flag or DEALBOOK_EMAIL env var)")
	}

	// Prompt for password if not provided via flag or env var
	if password == "" {
		var err error
		password, err = o.readPassword()
		if err != nil {
			return err
		}
	}

	a, err := newApp(ctx, o)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(a.out, "Logging in to %s...\n", a.cfg.API.URL)

	s, err := a.sessions.Login(ctx, session.Credentials{Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("%s: %w", s.ErrorMessage, err)
	}
	if !s.Authenticated() {
		return errors.New(s.ErrorMessage)
	}

	fmt.Fprintln(a.out, "✓ Login successful!")
	fmt.Fprintf(a.out, "  User: %s (%s)\n", s.User.FullName(), s.User.Email)
	if s.CurrentBusiness != nil {
		fmt.Fprintf(a.out, "  Business: %s\n", s.CurrentBusiness.Name)
	}

	if a.lastSync != nil {
		printSyncOutcome(a, a.lastSync.result, a.lastSync.err)
	}

	return nil
}

// readTerminalPassword prompts for a password without echoing it.
func readTerminalPassword() (string, error) {
	// Check if stdin is a terminal (not piped)
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("password is required in non-interactive mode (use --password flag or DEALBOOK_PASSWORD env var)")
	}

	fmt.Print("Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // New line after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}
