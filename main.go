package main

import (
	"errors"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var version = "dev" // set by the linker

// errSilentFailure is returned by commands that have already explained the failure on the
// console; it only sets the exit status.
var errSilentFailure = errors.New("failed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errSilentFailure) {
			log.Error(err.Error())
		}
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Tests call it to get an isolated instance.
func newRootCmd() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:   "astroprobe",
		Short: "Contract tests for a deployment of the Celestia booking API",
		Long: `astroprobe sends requests to a live deployment of the booking API and checks
the status codes and response shapes of every public endpoint. Tests that
change data, or call the payment or email provider, run only when the
matching capability is enabled.

It also has tools for checking credentials directly against the user store,
and an in-memory mock of the API for trying out the tests.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is astroprobe/astroprobe.yaml in the user config directory, or ./astroprobe.yaml)")

	cmd.AddCommand(newRunCmd(&configFile))
	cmd.AddCommand(newVerifyCredentialsCmd(&configFile))
	cmd.AddCommand(newAuditPasswordsCmd(&configFile))
	cmd.AddCommand(newMockCmd(&configFile))
	cmd.AddCommand(newShowConfigCmd(&configFile))
	return cmd
}

func newLogger(cmd *cobra.Command) *log.Logger {
	return log.NewWithOptions(cmd.ErrOrStderr(), log.Options{Prefix: "astroprobe"})
}
