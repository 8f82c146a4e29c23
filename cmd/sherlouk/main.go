// Command sherlouk parses delimited uploads, infers column types and
// previews the tables they would load into.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sherlouk/internal/config"
	"sherlouk/internal/metrics"
	"sherlouk/internal/metrics/datadog"
)

// errReported means the failure was already written to the user.
var errReported = errors.New("failed")

type app struct {
	stdout io.Writer
	stderr io.Writer

	cfgPath        string
	verbose        bool
	metricsBackend string

	cfg     *config.Config
	log     *zap.Logger
	runID   string
	closers []func()
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr, log: zap.NewNop()}
	defer a.shutdown()

	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(stderr, "sherlouk: %v\n", err)
		}
		return 1
	}
	return 0
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sherlouk",
		Short:         "Inspect delimited uploads and preview their target tables",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.cfgPath)
			if err != nil {
				return err
			}
			a.cfg = cfg

			if err := a.initLogger(); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.initMetrics()

			a.log.Debug("command start", zap.String("command", cmd.CommandPath()), zap.Strings("args", args))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.shutdown()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.metricsBackend, "metrics-backend", "", "metrics backend: none or datadog (default from config)")

	root.AddCommand(a.parseCmd(), a.ddlCmd(), a.exportCmd(), a.syncCmd())
	return root
}

func (a *app) initLogger() error {
	zc := zap.NewProductionConfig()
	if a.verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else if lvl, err := zapcore.ParseLevel(a.cfg.Log.Level); err == nil {
		zc.Level = zap.NewAtomicLevelAt(lvl)
	} else {
		return err
	}

	a.runID = uuid.NewString()
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zc.EncoderConfig), zapcore.AddSync(a.stderr), zc.Level)
	a.log = zap.New(core, zap.AddCaller()).With(zap.String("run_id", a.runID))
	return nil
}

// initMetrics installs the selected backend: flag, then config. Init
// failures fall back to the nop backend.
func (a *app) initMetrics() {
	name := a.metricsBackend
	if name == "" {
		name = a.cfg.Metrics.Backend
	}

	switch strings.ToLower(name) {
	case "datadog":
		tags := datadog.ParseTagsCSV(a.cfg.Metrics.Tags)
		tags = append(tags, datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS"))...)

		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName:    "sherlouk",
			Tags:       tags,
			FlushEvery: a.cfg.Metrics.FlushEvery,
		})
		if err != nil {
			a.log.Warn("metrics: datadog init failed; using nop", zap.Error(err))
			return
		}
		a.log.Debug("metrics: datadog enabled", zap.Strings("tags", tags))
		metrics.SetBackend(b)
		a.closers = append(a.closers, func() {
			if err := b.Close(); err != nil {
				a.log.Warn("metrics: datadog close/flush error", zap.Error(err))
			}
			metrics.SetBackend(nil)
		})

	case "", "none":
		a.log.Debug("metrics: disabled")

	default:
		a.log.Warn("metrics: unknown backend; metrics disabled", zap.String("backend", name))
	}
}

// shutdown flushes metrics and the logger. Safe to call more than once.
func (a *app) shutdown() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	if a.log != nil {
		_ = a.log.Sync()
	}
}
