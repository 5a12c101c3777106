package commands

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/docgate/internal/ci"
	"git.home.luguber.info/inful/docgate/internal/config"
	"git.home.luguber.info/inful/docgate/internal/events"
	"git.home.luguber.info/inful/docgate/internal/history"
	"git.home.luguber.info/inful/docgate/internal/logfields"
	"git.home.luguber.info/inful/docgate/internal/pipeline"
	"github.com/alecthomas/kong"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (default docgate.yaml)"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build     BuildCmd     `cmd:"" help:"Run the full pipeline: regenerate, gate sources, render, and in CI gate the published tree"`
	Generate  GenerateCmd  `cmd:"" help:"Regenerate and rewrite the staged doc sources without gating"`
	Verify    VerifyCmd    `cmd:"" help:"Regenerate doc sources and fail when they are not checked in"`
	Render    RenderCmd    `cmd:"" help:"Render the published HTML tree from the staged sources"`
	Clean     CleanCmd     `cmd:"" help:"Remove the managed staging and publish directories"`
	Linkcheck LinkcheckCmd `cmd:"" help:"Check internal links in the published HTML tree"`
	History   HistoryCmd   `cmd:"" help:"Show recent documentation runs"`
	Watch     WatchCmd     `cmd:"" help:"Continuously verify documentation as package sources change"`
	Init      InitCmd      `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; setup logging once. Commands that load
// configuration re-apply the configured level and format afterwards.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// setupLogging replaces the default logger with the configured handler.
// Precedence: -v, then DOCGATE_LOG_LEVEL, then the configured level.
func setupLogging(cfg *config.Config, verbose bool) {
	level := slogLevel(cfg.Logging.Level)
	if env := os.Getenv("DOCGATE_LOG_LEVEL"); env != "" {
		level = slogLevel(config.NormalizeLogLevel(env))
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// runtime bundles the loaded configuration with a ready pipeline runner.
// Every command that executes runs goes through newRuntime so config loading,
// logging setup, and repository discovery behave identically.
type runtime struct {
	cfg    *config.Config
	runner *pipeline.Runner
}

func newRuntime(root *CLI) (*runtime, error) {
	cfg, err := config.LoadOrDefault(root.Config)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg, root.Verbose)

	runner, err := pipeline.NewRunner(cfg, ".")
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, runner: runner}, nil
}

// execute runs the pipeline once and records the aftermath (history row,
// run event) before surfacing the run error to the command.
func (rt *runtime) execute(ctx context.Context, opts pipeline.Options) error {
	rep := rt.newReporter()
	defer rep.Close()

	report, runErr := rt.runner.Run(ctx, opts)
	rep.record(report)
	return runErr
}

// detectCI resolves the CI context for a run. A forced flag wins; otherwise
// the positional identifier and the configured environment variables decide.
func detectCI(cfg *config.Config, arg string, force bool) *ci.Context {
	if force {
		forced := ci.Forced()
		return &forced
	}
	detector := ci.Detector{EnvVars: cfg.CI.Env, Names: cfg.CI.Names}
	if detected, ok := detector.Detect(arg); ok {
		return &detected
	}
	return nil
}

// reporter records finished runs into the history store and publishes run
// events. Both sinks are optional and failures only warn: a gate result must
// never be masked by a bookkeeping problem.
type reporter struct {
	store *history.Store
	pub   *events.Publisher
	keep  int
}

func (rt *runtime) newReporter() *reporter {
	rep := &reporter{keep: rt.cfg.History.Keep}
	if rt.cfg.History.RecordingEnabled() {
		dbPath := filepath.Join(rt.cfg.DataDir(rt.runner.Repo().Root()), history.FileName)
		store, err := history.Open(dbPath)
		if err != nil {
			slog.Warn("Could not open run history", logfields.Path(dbPath), logfields.Error(err))
		} else {
			rep.store = store
		}
	}
	if rt.cfg.Events.Enabled {
		rep.pub = events.NewPublisher(rt.cfg.Events)
	}
	return rep
}

// record persists one finished run. Runs under a canceled context still get
// recorded, so the aftermath uses its own short deadline.
func (r *reporter) record(report *pipeline.RunReport) {
	if report == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if r.store != nil {
		if err := r.store.Record(ctx, report); err != nil {
			slog.Warn("Could not record run in history", logfields.RunID(report.RunID), logfields.Error(err))
		} else if r.keep > 0 {
			if _, err := r.store.Prune(ctx, r.keep); err != nil {
				slog.Warn("Could not prune run history", logfields.Error(err))
			}
		}
	}
	if r.pub != nil {
		if err := r.pub.Publish(ctx, report); err != nil {
			slog.Warn("Could not publish run event", logfields.RunID(report.RunID), logfields.Error(err))
		}
	}
}

func (r *reporter) Close() {
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			slog.Warn("Could not close run history", logfields.Error(err))
		}
	}
	if r.pub != nil {
		if err := r.pub.Close(); err != nil {
			slog.Warn("Could not close event publisher", logfields.Error(err))
		}
	}
}
