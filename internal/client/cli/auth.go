package cli

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/instanthost/internal/client/credentials"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
)

func (a *App) newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [key]",
		Short: "Store an API key for authenticated publishes",
		Long: `Store an API key in the credentials file. When no key is given it is
read from the terminal without echo, or from standard input when piped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				var err error
				if key, err = GetSecret(a.in, "API key", a.errOut); err != nil {
					return fmt.Errorf("read API key: %w", err)
				}
			}
			if err := credentials.Save(a.cfg.CredentialsFile, key); err != nil {
				return err
			}
			okColor.Fprintf(a.errOut, "✓ Logged in. API key saved to %s\n", a.cfg.CredentialsFile)
			return nil
		},
	}
}

func (a *App) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			existed, err := credentials.Remove(a.cfg.CredentialsFile)
			if err != nil {
				return err
			}
			if !existed {
				warnColor.Fprintln(a.errOut, "Not logged in.")
				return nil
			}
			okColor.Fprintln(a.errOut, "✓ Logged out. Credentials cleared.")
			return nil
		},
	}
}

func (a *App) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which API key publishes would use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(a.out, "API: %s\n", a.cfg.BaseURL)

			cred, err := a.resolver().Resolve()
			if errors.Is(err, credentials.ErrNoCredentials) {
				warnColor.Fprintln(a.out, "Mode: anonymous (sites expire after 24 hours unless claimed)")
				return err
			}
			if err != nil {
				return err
			}
			okColor.Fprintf(a.out, "Mode: authenticated (key %s…, from %s)\n", cred.Prefix(), cred.Source)
			return nil
		},
	}
}
