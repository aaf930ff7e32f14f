package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:8080"

// Options are the flags shared by every command.
type Options struct {
	Server  string
	Timeout time.Duration
}

func (o *Options) client() *Client {
	return NewClient(o.Server, o.Timeout)
}

// RootCmd builds trackctl with all subcommands attached.
func RootCmd() *cobra.Command {
	opts := &Options{}
	root := &cobra.Command{
		Use:   "trackctl",
		Short: "Control the shift presence tracker",
		Long: `trackctl clocks the employee in and out of a shift on a running trackerd
and shows the captured locations and geofence verdicts.`,
		SilenceUsage: true,
	}

	server := os.Getenv("TRACKER_URL")
	if server == "" {
		server = defaultServer
	}
	root.PersistentFlags().StringVar(&opts.Server, "server", server, "trackerd base URL (env TRACKER_URL)")
	root.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "request timeout")

	root.AddCommand(StartCmd(opts))
	root.AddCommand(StopCmd(opts))
	root.AddCommand(StatusCmd(opts))
	root.AddCommand(HistoryCmd(opts))
	root.AddCommand(CheckCmd(opts))
	return root
}

// StartCmd clocks in.
func StartCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Clock in and start tracking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.client().Start(cmd.Context())
			if IsConflict(err) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Already clocked in.")
				st, err = opts.client().Status(cmd.Context())
			}
			if err != nil {
				return err
			}
			formatStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

// StopCmd clocks out.
func StopCmd(opts *Options) *cobra.Command {
	var clearHistory bool
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Clock out and stop tracking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.client().Stop(cmd.Context(), clearHistory)
			if err != nil {
				return err
			}
			formatStatus(cmd.OutOrStdout(), st)
			if clearHistory {
				fmt.Fprintln(cmd.OutOrStdout(), "Location history cleared.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearHistory, "clear", false, "Also delete the recorded locations")
	return cmd
}

// StatusCmd shows the clock state.
func StatusCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the clock-in state and the last geofence verdict",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.client().Status(cmd.Context())
			if err != nil {
				return err
			}
			formatStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

// HistoryCmd lists the recorded locations.
func HistoryCmd(opts *Options) *cobra.Command {
	var utc bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the locations captured during the shift",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fixes, err := opts.client().History(cmd.Context())
			if err != nil {
				return err
			}
			loc := time.Local
			if utc {
				loc = time.UTC
			}
			formatHistory(cmd.OutOrStdout(), fixes, loc)
			return nil
		},
	}
	cmd.Flags().BoolVar(&utc, "utc", false, "Print timestamps in UTC")
	return cmd
}

// CheckCmd evaluates a position against the work site.
func CheckCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "check <lat,lon>",
		Short: "Check whether a position is within the work site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			check, err := opts.client().Check(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			formatCheck(cmd.OutOrStdout(), check)
			return nil
		},
	}
}
