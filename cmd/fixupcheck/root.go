package main

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// formats are the accepted values of --format.
var formats = []string{"text", "yaml"}

// options are the settings shared by all commands. Each one can be set by
// flag or by a FIXUPCHECK_ environment variable.
type options struct {
	v *viper.Viper
}

func (o *options) format() string   { return o.v.GetString("format") }
func (o *options) workers() int     { return o.v.GetInt("workers") }
func (o *options) logLevel() string { return o.v.GetString("log-level") }

// logger returns a text logger on w at the configured level.
func (o *options) logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel())); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", o.logLevel(), err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func newRootCommand() *cobra.Command {
	opts := &options{v: viper.New()}
	cmd := &cobra.Command{
		Use:   "fixupcheck",
		Short: "Check relationship fixup against the catalog model",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.v.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
				return fmt.Errorf("bind flags: %w", err)
			}
			if !slices.Contains(formats, opts.format()) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.format(), formats)
			}
			if opts.workers() < 1 {
				return fmt.Errorf("invalid workers %d: must be positive", opts.workers())
			}
			return nil
		},
		SilenceUsage: true,
	}
	flags := cmd.PersistentFlags()
	flags.String("format", "text", "output format (text|yaml)")
	flags.Int("workers", 8, "scenarios run concurrently")
	flags.String("log-level", "warn", "log level of the trackers (debug|info|warn|error)")
	opts.v.SetEnvPrefix("FIXUPCHECK")
	opts.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	opts.v.AutomaticEnv()

	cmd.AddCommand(newMatrixCommand(opts), newModelCommand(opts))
	return cmd
}
