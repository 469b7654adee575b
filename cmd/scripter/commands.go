package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"codeberg.org/sigterm-de/scripter/internal/app"
	"codeberg.org/sigterm-de/scripter/internal/take"
	"codeberg.org/sigterm-de/scripter/internal/ui"
	"github.com/spf13/cobra"
)

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (app.Config, error) {
	cfg, err := app.LoadConfig(opts.configPath)
	if err != nil {
		return app.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("takes-dir") {
		cfg.TakesDir = opts.takesDir
	}
	if flags.Changed("speed") {
		cfg.Speed = opts.speed
	}
	if flags.Changed("loop") {
		cfg.Loop = opts.loop
	}
	return cfg, cfg.Validate()
}

func newPlayCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "play [take]",
		Short: "Open the player with one tab per take",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			logPath := app.InitLogging(cfg, version)

			lib, err := app.LoadLibrary(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			prefs := app.LoadPreferences()
			if len(args) == 1 {
				if _, ok := lib.Get(args[0]); !ok {
					return fmt.Errorf("unknown take %q", args[0])
				}
				prefs.StartTake = args[0]
			}

			relay := &ui.Relay{}
			a, err := app.New(cmd.Context(), cfg, lib, relay.Hooks())
			if err != nil {
				return err
			}
			defer a.Close()
			return ui.Run(a, relay, prefs, logPath)
		},
	}
}

func newRenderCmd(opts *rootOptions) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "render <take>",
		Short: "Play a take without a terminal UI and print the final buffer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			cfg.Loop = false
			app.InitLogging(cfg, version)

			lib, err := app.LoadLibrary(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), cfg, lib, app.Hooks{})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			out, err := a.Render(ctx, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "give up after this long (0 disables)")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list [query]",
		Short: "List takes, optionally fuzzy-filtered by name and tags",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			app.InitLogging(cfg, version)
			lib, err := app.LoadLibrary(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSOURCE\tSTEPS\tTAGS\tDESCRIPTION")
			for _, e := range lib.Search(query) {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
					e.Name, e.Source, len(e.Steps), strings.Join(e.Tags, ","), e.Description)
			}
			return w.Flush()
		},
	}
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of take files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := take.Schema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}
