// Package watch re-runs documentation verification whenever the documented
// package changes on disk. Bursts of file events are coalesced through a
// debounce window, runs are serialized so changes during a run collapse into
// one follow-up, and failed runs re-arm with a backoff delay so a broken
// toolchain does not spin the loop. Changes to the configuration file are
// reloaded in place.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/docgate/internal/ci"
	"git.home.luguber.info/inful/docgate/internal/config"
	"git.home.luguber.info/inful/docgate/internal/logfields"
	"git.home.luguber.info/inful/docgate/internal/pipeline"
	"git.home.luguber.info/inful/docgate/internal/rewrite"
)

// Trigger reasons carried from event sources to the debounced run.
const (
	reasonInitial  = "initial"
	reasonFS       = "fs"
	reasonSchedule = "schedule"
	reasonConfig   = "config"
)

// Options parameterize a watch session.
type Options struct {
	Mode pipeline.Mode // run mode per trigger, default ModeVerify
	CI   *ci.Context   // forwarded to every run
	Site bool          // also render and gate the published tree
	// ConfigPath, when set, is watched and reloaded on change.
	ConfigPath string
	Backoff    Backoff
	// OnRun is invoked after every run with the report and run error. The
	// CLI uses it to record history and publish run events.
	OnRun func(*pipeline.RunReport, error)
	// MetricsHandler is mounted on the configured metrics address.
	MetricsHandler http.Handler
}

// Watcher drives the watch loop. Create with New and call Run; the loop
// stops when the context is canceled.
type Watcher struct {
	cfg      *config.Config
	runner   *pipeline.Runner
	opts     Options
	debounce time.Duration
	requests chan string
	failures int
}

// New builds a watcher around an existing runner. The runner's configuration
// pointer is shared; config reloads swap its contents in place.
func New(cfg *config.Config, runner *pipeline.Runner, opts Options) *Watcher {
	if opts.Mode == "" {
		opts.Mode = pipeline.ModeVerify
	}
	if opts.Backoff == (Backoff{}) {
		opts.Backoff = DefaultBackoff()
	}
	return &Watcher{
		cfg:      cfg,
		runner:   runner,
		opts:     opts,
		debounce: cfg.Watch.DebounceDuration(),
		requests: make(chan string, 1),
	}
}

// Run executes an initial run, then re-runs on debounced file changes,
// scheduler ticks, and config reloads until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	pkgDir := w.cfg.PackageDir(w.runner.Repo().Root())

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := addTree(fw, pkgDir); err != nil {
		return err
	}

	configPath := ""
	if w.opts.ConfigPath != "" {
		configPath, err = filepath.Abs(w.opts.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to resolve config path: %w", err)
		}
		// Watch the directory; editors replace the file on save, which
		// drops a watch registered on the file itself.
		if err := fw.Add(filepath.Dir(configPath)); err != nil {
			return fmt.Errorf("failed to watch config directory: %w", err)
		}
	}

	if interval := w.cfg.Watch.IntervalDuration(); interval > 0 {
		sched, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}
		_, err = sched.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(func() { w.trigger(reasonSchedule) }),
			gocron.WithName("periodic-verify"),
		)
		if err != nil {
			return fmt.Errorf("failed to schedule periodic verification: %w", err)
		}
		sched.Start()
		defer func() { _ = sched.Shutdown() }()
		slog.Info("Scheduled periodic verification", slog.Duration("interval", interval))
	}

	if addr := w.cfg.Watch.MetricsAddr; addr != "" && w.opts.MetricsHandler != nil {
		w.serveMetrics(ctx, addr)
	}

	slog.Info("Watching for changes",
		logfields.Dir(pkgDir),
		slog.Duration("debounce", w.debounce))

	w.runOnce(ctx, reasonInitial)

	debounce := time.NewTimer(time.Hour)
	stopTimer(debounce)
	var debounceC <-chan time.Time
	pendingReason := ""

	for {
		select {
		case <-ctx.Done():
			stopTimer(debounce)
			slog.Info("Watch stopped")
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if configPath != "" && ev.Name == configPath {
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					w.reloadConfig(configPath)
					pendingReason = reasonConfig
					resetTimer(debounce, w.debounce)
					debounceC = debounce.C
				}
				continue
			}
			if !relevantEvent(ev, pkgDir) {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if fi, serr := os.Stat(ev.Name); serr == nil && fi.IsDir() {
					if aerr := fw.Add(ev.Name); aerr != nil {
						slog.Warn("Failed to watch new directory", logfields.Dir(ev.Name), logfields.Error(aerr))
					}
				}
			}
			slog.Debug("Change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			pendingReason = reasonFS
			resetTimer(debounce, w.debounce)
			debounceC = debounce.C

		case werr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Error("Watcher error", logfields.Error(werr))

		case reason := <-w.requests:
			pendingReason = reason
			resetTimer(debounce, w.debounce)
			debounceC = debounce.C

		case <-debounceC:
			debounceC = nil
			w.runOnce(ctx, pendingReason)
			pendingReason = ""
		}
	}
}

// runOnce executes one run synchronously. Serializing runs in the loop keeps
// overlap handling trivial: events arriving mid-run queue up and collapse
// into the next debounce window.
func (w *Watcher) runOnce(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}

	trigger := pipeline.TriggerWatch
	if reason == reasonSchedule {
		trigger = pipeline.TriggerSchedule
	}
	slog.Info("Triggering run", slog.String("reason", reason))

	report, err := w.runner.Run(ctx, pipeline.Options{
		Mode:    w.opts.Mode,
		Trigger: trigger,
		CI:      w.opts.CI,
		Site:    w.opts.Site,
	})
	if w.opts.OnRun != nil {
		w.opts.OnRun(report, err)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		w.failures++
		delay := w.opts.Backoff.Delay(w.failures)
		slog.Warn("Run failed; delaying next trigger",
			logfields.Error(err),
			logfields.Count(w.failures),
			slog.Duration("delay", delay))
		select {
		case <-ctx.Done():
		case <-time.After(delay):
		}
		return
	}
	if err == nil {
		w.failures = 0
	}
}

// reloadConfig loads the changed file and swaps the shared config in place.
// A file that no longer parses keeps the previous configuration.
func (w *Watcher) reloadConfig(configPath string) {
	newCfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to reload configuration", logfields.Path(configPath), logfields.Error(err))
		return
	}
	*w.cfg = *newCfg
	w.debounce = w.cfg.Watch.DebounceDuration()
	w.runner.SetRewriteSteps(rewrite.Steps(w.cfg, w.runner.Repo().Root()))
	slog.Info("Configuration reloaded", logfields.Path(configPath))
}

// trigger requests a debounced run; a pending request absorbs duplicates.
func (w *Watcher) trigger(reason string) {
	select {
	case w.requests <- reason:
	default:
	}
}

// serveMetrics exposes the metrics handler until the context ends.
func (w *Watcher) serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", w.opts.MetricsHandler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		slog.Info("Serving metrics", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", logfields.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// relevantEvent filters events to mutations inside the package tree.
// Dotfiles (editor swap files, VCS internals) are ignored.
func relevantEvent(ev fsnotify.Event, pkgDir string) bool {
	const ops = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename
	if ev.Op&ops == 0 {
		return false
	}
	if strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return false
	}
	rel, err := filepath.Rel(pkgDir, ev.Name)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}

// addTree registers root and every non-hidden subdirectory; fsnotify watches
// are not recursive.
func addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to walk %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	stopTimer(t)
	t.Reset(d)
}
