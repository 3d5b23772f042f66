package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"acdash/pkg/telemetry"
)

func newTimeCmd(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "time",
		Short: "Parse and format lap times the way the dashboard does",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "parse TIME...",
		Short: "Print milliseconds and MM:SS.mmm for each lap time string",
		Example: `  acdash time parse 1:23.456 45:678 :45:678
  acdash time parse 1:23:456`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				ms, ok := telemetry.ParseTime(arg)
				if !ok {
					fmt.Fprintf(stdout, "%s\tinvalid\n", arg)
					continue
				}
				fmt.Fprintf(stdout, "%s\t%d\t%s\n", arg, ms, telemetry.FormatTime(ms))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "format MILLIS...",
		Short: "Print each millisecond count as MM:SS.mmm",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				n, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return usageError{err: fmt.Errorf("invalid milliseconds %q: %w", arg, err)}
				}
				fmt.Fprintln(stdout, telemetry.FormatTime(telemetry.Millis(n)))
			}
			return nil
		},
	})

	return cmd
}
