package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/docgate/internal/config"
	"git.home.luguber.info/inful/docgate/internal/metrics"
	"git.home.luguber.info/inful/docgate/internal/pipeline"
	"git.home.luguber.info/inful/docgate/internal/watch"
	"github.com/prometheus/client_golang/prometheus"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Mode        string `default:"verify" enum:"verify,full,generate" help:"Pipeline mode executed on each change"`
	Site        bool   `help:"Also render and gate the published tree on each run"`
	CI          bool   `help:"Force CI mode for every run"`
	Interval    string `help:"Periodic verification interval, e.g. 30m (overrides config)"`
	MetricsAddr string `name:"metrics-addr" help:"Serve Prometheus metrics on this address (overrides config)"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	rt, err := newRuntime(root)
	if err != nil {
		return err
	}

	if w.Interval != "" {
		rt.cfg.Watch.Interval = w.Interval
		if err := config.ValidateConfig(rt.cfg); err != nil {
			return fmt.Errorf("invalid --interval %q: %w", w.Interval, err)
		}
	}
	if w.MetricsAddr != "" {
		rt.cfg.Watch.MetricsAddr = w.MetricsAddr
	}

	reg := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)
	rt.runner.SetRecorder(recorder).SetObserver(pipeline.RecorderObserver{Recorder: recorder})

	var metricsHandler http.Handler
	if rt.cfg.Watch.MetricsAddr != "" {
		metricsHandler = metrics.HTTPHandler(reg)
	}

	rep := rt.newReporter()
	defer rep.Close()

	watcher := watch.New(rt.cfg, rt.runner, watch.Options{
		Mode:       pipeline.Mode(w.Mode),
		CI:         detectCI(rt.cfg, "", w.CI),
		Site:       w.Site,
		ConfigPath: watchableConfigPath(root.Config),
		OnRun: func(report *pipeline.RunReport, _ error) {
			rep.record(report)
		},
		MetricsHandler: metricsHandler,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Println("Watching for documentation changes, Ctrl-C to stop")
	return watcher.Run(ctx)
}

// watchableConfigPath returns the config path to watch for reloads, empty
// when no file exists (a defaults-only setup has nothing to reload).
func watchableConfigPath(flagPath string) string {
	path := flagPath
	if path == "" {
		path = config.DefaultPath
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
