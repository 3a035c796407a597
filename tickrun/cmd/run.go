package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/tickrun/config"
	"github.com/sarchlab/tickrun/simulation"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a block diagram.",
	Long: `Run a block diagram until its run time elapses or the process is ` +
		`interrupted. The built-in sine/triangle diagram runs when no ` +
		`diagram is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runDiagram(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("diagram", "",
		"The diagram file. Overrides TICKRUN_DIAGRAM_PATH.")
	runCmd.Flags().String("params", "",
		"A params file overriding the diagram parameters.")
	runCmd.Flags().String("run-path", "",
		"The directory outputs are written to. Overrides TICKRUN_RUN_PATH.")
	runCmd.Flags().Float64("data-log-rate", 0,
		"Rate in Hz of the file logs. Zero logs every tick.")
	runCmd.Flags().Bool("sqlite", false,
		"Also record into a SQLite database in the run path.")
	runCmd.Flags().String("publish", "",
		"UDP address the records are published to.")
	runCmd.Flags().Bool("no-realtime", false,
		"Run as fast as possible, ignoring the wall clock.")
	runCmd.Flags().Bool("monitor", false,
		"Serve the monitoring dashboard while running.")
	runCmd.Flags().Int("monitor-port", 0,
		"Port of the monitoring server. A random port is used if below 1000.")
	runCmd.Flags().Bool("open-monitor", false,
		"Open the monitoring dashboard in a browser. Implies --monitor.")
}

func applyRunFlags(cmd *cobra.Command, v *config.Vars) {
	flags := cmd.Flags()

	if s, _ := flags.GetString("diagram"); s != "" {
		v.DiagramPath = s
	}

	if s, _ := flags.GetString("params"); s != "" {
		v.ParamsPath = s
	}

	if s, _ := flags.GetString("run-path"); s != "" {
		v.RunPath = s
	}

	if s, _ := flags.GetString("publish"); s != "" {
		v.PublishSocket = s
	}

	if flags.Changed("data-log-rate") {
		v.DataLogRateHz, _ = flags.GetFloat64("data-log-rate")
	}

	if flags.Changed("sqlite") {
		v.SQLite, _ = flags.GetBool("sqlite")
	}
}

func buildSimulation(cmd *cobra.Command) (*simulation.Simulation, error) {
	v := vars
	applyRunFlags(cmd, &v)

	b := simulation.MakeBuilder().
		WithVars(v).
		WithLogger(slog.Default())

	if v.DiagramPath != "" {
		d, err := config.LoadDiagram(v.DiagramPath)
		if err != nil {
			return nil, err
		}

		b = b.WithDiagram(d)
	}

	if noRealtime, _ := cmd.Flags().GetBool("no-realtime"); noRealtime {
		b = b.WithRealtime(false)
	}

	monitor, _ := cmd.Flags().GetBool("monitor")
	openMonitor, _ := cmd.Flags().GetBool("open-monitor")
	if monitor || openMonitor {
		port, _ := cmd.Flags().GetInt("monitor-port")
		b = b.WithMonitoring(port)
	}

	return b.Build()
}

func runDiagram(cmd *cobra.Command) error {
	slog.Info("tickrun starting",
		"version", version(),
		"go", runtime.Version(),
		"pid", os.Getpid())

	s, err := buildSimulation(cmd)
	if err != nil {
		return err
	}

	atexit.Register(func() { terminate(s) })
	defer terminate(s)

	if url := s.MonitorURL(); url != "" {
		slog.Info("monitoring", "url", url)

		if open, _ := cmd.Flags().GetBool("open-monitor"); open {
			if err := browser.OpenURL(url); err != nil {
				slog.Warn("cannot open browser", "error", err)
			}
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runGuarded(ctx, s)
}

// runGuarded runs the simulation. A panic writes a crash report into the run
// path and closes the sinks before it propagates.
func runGuarded(ctx context.Context, s *simulation.Simulation) error {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		path, err := writeCrashReport(s.RunPath(), s.ID(), r, debug.Stack())
		if err != nil {
			slog.Error("cannot write crash report", "error", err)
		} else {
			slog.Error("run crashed", "report", path)
		}

		terminate(s)
		panic(r)
	}()

	return s.Run(ctx)
}

func terminate(s *simulation.Simulation) {
	if err := s.Terminate(); err != nil {
		slog.Error("cannot close sinks", "error", err)
	}
}
