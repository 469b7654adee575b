package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/sigterm-de/scripter/internal/app"
	"codeberg.org/sigterm-de/scripter/internal/logging"
	"github.com/spf13/cobra"
)

// Injected at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string) int {
	defer logging.Close()

	root := newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "scripter:", err)
		return 1
	}
	return 0
}

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	takesDir   string
	speed      float64
	loop       bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "scripter",
		Short:         "Interruptible code-typing playback",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file (default: $XDG_CONFIG_HOME/scripter/config.yaml)")
	root.PersistentFlags().StringVar(&opts.takesDir, "takes-dir", "", "directory with user takes")
	root.PersistentFlags().Float64Var(&opts.speed, "speed", 0, "playback speed multiplier")
	root.PersistentFlags().BoolVar(&opts.loop, "loop", false, "restart takes when they finish")

	root.AddCommand(newPlayCmd(opts))
	root.AddCommand(newRenderCmd(opts))
	root.AddCommand(newListCmd(opts))
	root.AddCommand(newSchemaCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				_, err := fmt.Fprint(cmd.OutOrStdout(), app.About(version, commit, date))
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "scripter %s (commit %s, built %s)\n", version, commit, date)
			return err
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "also print dependency versions and paths")
	return cmd
}
