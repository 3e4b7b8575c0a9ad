// Fbx is a command-line client for the local API of Freebox routers.
//
// It discovers boxes on the network, pairs with them once to obtain an app
// token, and then performs authenticated API calls, opening and renewing
// sessions transparently.
//
// Usage:
//
//	fbx [command] [flags]
//
// Settings can be given as flags or as FBX_* environment variables
// (e.g. FBX_BOX, FBX_APP_TOKEN). See 'fbx --help' for available commands.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/muurk/fbx/internal/logging"
	"github.com/muurk/fbx/internal/version"
)

// settings holds flag values merged with FBX_* environment variables
var settings = viper.New()

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		var reported reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fbx",
	Short: "Freebox local API client",
	Long: `A command-line client for the local HTTP API of Freebox routers.

Pair once with 'fbx pair' (the request must be accepted on the Freebox
Server display), then call any API endpoint with 'fbx get' or 'fbx call'.
Sessions are opened and renewed automatically.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.InitializeFromEnv()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.String("box", "", "Paired box to use (UID or nickname, default: the default box)")
	flags.String("domain", "", "API domain (overrides the stored one)")
	flags.Int("port", 0, "HTTPS port (overrides the stored one)")
	flags.String("app-id", "", "App ID (overrides the stored one)")
	flags.String("app-token", "", "App token (overrides the stored one)")
	flags.Duration("timeout", 0, "HTTP timeout, or scan duration for 'fbx scan' (default 10s)")
	flags.BoolP("verbose", "v", false, "Log session secrets at debug level (needs FBX_LOG_LEVEL=debug)")

	settings.SetEnvPrefix("FBX")
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()
	_ = settings.BindPFlags(flags)

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fbx %s\n", version.Full())
	},
}
