// Package cmd provides the command-line interface of tickrun.
package cmd

import (
	"io"
	"log/slog"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/tickrun/config"
)

var (
	vars     = config.DefaultVars()
	logLevel string
	envFiles []string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tickrun",
	Short: "tickrun runs block diagrams at a fixed rate and records the outputs.",
	Long: `tickrun runs block diagrams at a fixed rate and records the ` +
		`outputs. A diagram is a set of states, each holding a list of ` +
		`blocks, and the transitions between them. Records go to CSV, ` +
		`SQLite and UDP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		v, err := config.LoadVars(envFiles...)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("log-level") {
			v.LogLevel = logLevel
		}

		level, err := config.ParseLogLevel(v.LogLevel)
		if err != nil {
			return err
		}

		slog.SetDefault(newLogger(cmd.ErrOrStderr(), level))
		vars = v

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level: debug, info, warn or error. Overrides TICKRUN_LOG_LEVEL.")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil,
		"The .env files to load. ./.env is loaded if none is given.")
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Value.Kind() == slog.KindAny {
				if _, ok := a.Value.Any().(error); ok {
					return tint.Attr(9, a)
				}
			}

			return a
		},
	})

	return slog.New(handler)
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}
}
