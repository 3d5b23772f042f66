package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"acdash/pkg/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }

func (e usageError) Unwrap() error { return e.err }

// run executes the CLI and returns the process exit code: 0 on success, 2 for
// usage errors and 1 for everything else.
func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintln(stderr, "Error:", err)

	var usage usageError
	if errors.As(err, &usage) || strings.HasPrefix(err.Error(), "unknown command") {
		return 2
	}
	return 1
}

func newRootCmd(stdout io.Writer, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "acdash",
		Short: "acdash - terminal dashboard for racing simulator telemetry",
		Long: `acdash connects to a racing simulator telemetry feed over WebSocket
(ws://<host>:<port>/ws), normalizes every snapshot into dashboard widgets and
renders them in the terminal or as JSON lines. The connection is retried
forever; the dashboard shows "Connecting..." until the feed is reachable.

Settings come from the config file (TOML, or YAML by extension), ACDASH_*
environment variables (e.g. ACDASH_ENDPOINT_HOST) and flags, in increasing
order of precedence.`,
		Version:       "0.1.0",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err: err}
	})

	def := config.Default()
	root.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "config file path (.toml, .yaml, .yml)")
	root.PersistentFlags().String("log-level", def.Log.Level, "log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", def.Log.Format, "log format: text or json")
	root.PersistentFlags().String("log-file", "", "also write logs to this rotated file")
	addDashboardFlags(root)

	root.AddCommand(newRunCmd(stdout, stderr))
	root.AddCommand(newMockCmd(stderr))
	root.AddCommand(newTimeCmd(stdout))
	root.AddCommand(newConfigCmd(stdout))
	return root
}
