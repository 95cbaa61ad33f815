package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
}

// APIFlags holds the remote daemon connection flags.
type APIFlags struct {
	APIUrl     string
	APITimeout time.Duration
}

// ServeFlags holds flags for the serve command.
type ServeFlags struct {
	ConfigPath   string
	StartBackend bool
}

// StopFlags holds flags for the stop command.
type StopFlags struct {
	APIFlags
	Wait   time.Duration
	NoWait bool
}

// buildRoot creates the root command and wires the subcommands.
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	root := createRootCommand(globalFlags)
	root.AddCommand(
		createServeCommand(globalFlags),
		createStartCommand(),
		createStopCommand(),
		createStatusCommand(),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "verifier-shell",
		Short: "Desktop shell daemon for the LLMsVerifier backend",
		Long: `verifier-shell supervises the llm-verifier backend server process and
exposes an HTTP command surface the UI layer drives.

Examples:
  verifier-shell serve --config=shell.toml          # Run the shell daemon
  verifier-shell start                              # Start the backend via the daemon
  verifier-shell status --api-url=http://127.0.0.1:8091/api`,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file")
	return root
}

func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	serveFlags := &ServeFlags{}
	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Run the shell daemon",
		Long: `Run the shell daemon: supervise the backend process and serve the
HTTP command surface configured in the TOML file.

Examples:
  verifier-shell serve shell.toml
  verifier-shell serve --config=shell.toml --start-backend`,
		RunE: func(cmd *cobra.Command, args []string) error {
			serveFlags.ConfigPath = globalFlags.ConfigPath
			if len(args) > 0 {
				serveFlags.ConfigPath = args[0]
			}
			return runServe(serveFlags)
		},
	}
	cmd.Flags().BoolVar(&serveFlags.StartBackend, "start-backend", false, "start the backend immediately instead of waiting for a start request")
	return cmd
}

func createStartCommand() *cobra.Command {
	apiFlags := &APIFlags{}
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the backend via a running shell daemon",
		Long: `Ask a running shell daemon to start the backend and print the endpoint
it listens on.

Example:
  verifier-shell start --api-url=http://127.0.0.1:8091/api`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(*apiFlags)
		},
	}
	addAPIFlags(cmd, apiFlags)
	return cmd
}

func createStopCommand() *cobra.Command {
	stopFlags := &StopFlags{}
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the backend via a running shell daemon",
		Long: `Ask a running shell daemon to stop the backend. By default the command
waits for the backend to exit; --no-wait returns once termination has
been initiated.

Examples:
  verifier-shell stop
  verifier-shell stop --wait=10s
  verifier-shell stop --no-wait`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(*stopFlags)
		},
	}
	cmd.Flags().DurationVar(&stopFlags.Wait, "wait", 30*time.Second, "how long to wait for the backend to exit")
	cmd.Flags().BoolVar(&stopFlags.NoWait, "no-wait", false, "return once termination has been initiated")
	addAPIFlags(cmd, &stopFlags.APIFlags)
	return cmd
}

func createStatusCommand() *cobra.Command {
	apiFlags := &APIFlags{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show backend status from a running shell daemon",
		Long: `Fetch and print the backend's status from a running shell daemon.

Example:
  verifier-shell status --api-url=http://127.0.0.1:8091/api`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(*apiFlags)
		},
	}
	addAPIFlags(cmd, apiFlags)
	return cmd
}

func addAPIFlags(cmd *cobra.Command, flags *APIFlags) {
	cmd.Flags().StringVar(&flags.APIUrl, "api-url", "", "shell daemon URL (default http://127.0.0.1:8091/api)")
	cmd.Flags().DurationVar(&flags.APITimeout, "api-timeout", 35*time.Second, "request timeout")
}
