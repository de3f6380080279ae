// tt is a TickTick command line client. It authenticates with OAuth,
// keeps tokens fresh in the background of every command, and renders
// tasks and projects for humans or for pipes.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	authcmder "github.com/tickcli/tickcli/cmd/tt/authcmd"
	projectcmder "github.com/tickcli/tickcli/cmd/tt/projectcmd"
	taskcmder "github.com/tickcli/tickcli/cmd/tt/taskcmd"
	"github.com/tickcli/tickcli/pkg/oauth"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, oauth.ErrNotAuthenticated) || errors.Is(err, oauth.ErrReauthRequired) {
			fmt.Fprintln(os.Stderr, "Run 'tt auth login' to authenticate.")
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tt",
		Short:         "TickTick from the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().String("config-dir", "", "override the credentials directory")

	cmd.AddCommand(
		authcmder.NewAuthCmd(),
		taskcmder.NewTaskCmd(),
		projectcmder.NewProjectCmd(),
	)

	return cmd
}
