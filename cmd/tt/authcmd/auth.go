// Package authcmder provides the auth commands for logging in and out of
// TickTick.
package authcmder

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tickcli/tickcli/pkg/credentials"
	"github.com/tickcli/tickcli/pkg/oauth"
)

const authLongDesc = `Authenticate against TickTick with OAuth.

Login opens a browser for authorization and stores the resulting tokens
in credentials.toml under the per-OS config directory. Later commands
refresh the access token automatically; no further interaction is
needed until the refresh token itself expires.

Configuration is read from the environment:

  TICKTICK_CLIENT_ID         OAuth app client id (required)
  TICKTICK_CLIENT_SECRET     client secret, for bring-your-own apps
  TICKTICK_OAUTH_BROKER_URL  token broker URL, when no local secret
  TICKTICK_OAUTH_BROKER_KEY  broker API key, if the broker requires one
  TICKTICK_REDIRECT_URI      defaults to http://localhost:8080/callback

Exactly one of TICKTICK_CLIENT_SECRET and TICKTICK_OAUTH_BROKER_URL
must be set.`

// NewAuthCmd creates the auth command tree.
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate against TickTick",
		Long:  authLongDesc,
	}

	cmd.AddCommand(newLoginCmd(), newLogoutCmd(), newStatusCmd())

	return cmd
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in to TickTick via the browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := newManager(cmd)
			if err != nil {
				return err
			}
			return mgr.Login(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := newStore(cmd)
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Successfully logged out.")
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored authentication state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := newStore(cmd)
			if err != nil {
				return err
			}

			tokens, err := store.Load()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if tokens == nil {
				fmt.Fprintln(out, "Status: Not authenticated")
				fmt.Fprintln(out, "Run 'tt auth login' to authenticate.")
				return nil
			}

			fmt.Fprintln(out, "Status: Authenticated")
			if app := store.App(); app != nil && app.ClientID != "" {
				fmt.Fprintf(out, "Client ID: %s\n", app.ClientID)
			}
			fmt.Fprintf(out, "Credentials file: %s\n", store.Path())

			remaining := time.Until(tokens.ExpiresAt())
			switch {
			case remaining > time.Minute:
				fmt.Fprintf(out, "Token expires in: %d minutes\n", int(remaining.Minutes()))
			case remaining > 0:
				fmt.Fprintln(out, "Token expires in: less than a minute")
			default:
				fmt.Fprintln(out, "Token expired; it will be refreshed on the next command.")
			}
			return nil
		},
	}
}

// newStore resolves the credential store honoring --config-dir.
func newStore(cmd *cobra.Command) (*credentials.Store, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	return credentials.NewStore(configDir)
}

// newManager builds a lifecycle manager from the environment config,
// printing any configuration warnings once.
func newManager(cmd *cobra.Command) (*oauth.Manager, error) {
	cfg, err := oauth.LoadConfig()
	if err != nil {
		return nil, err
	}
	for _, warning := range cfg.Warnings {
		fmt.Fprintln(os.Stderr, "warning: "+warning)
	}

	store, err := newStore(cmd)
	if err != nil {
		return nil, err
	}

	return oauth.NewManager(cfg, store, nil), nil
}
