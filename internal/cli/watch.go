package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/irgroup/labelstudio-to-fonduer/internal/align"
	"github.com/irgroup/labelstudio-to-fonduer/internal/pipeline"
)

var watchMetricsAddr string

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <export.json>",
	Short: "Re-align an export whenever it changes",
	Long: `Watch runs the alignment pipeline once, then re-runs it every time the
export file is written. Writes are debounced so a tool saving in several
chunks triggers one run.

With a metrics address set, alignment counters are served on /metrics in
Prometheus format.

Example:
  ls2fonduer watch export.json
  ls2fonduer watch export.json --metrics :9090`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics", "", "serve Prometheus metrics on this address (default from config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log)

	exportPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	engine := align.NewEngine(st, cfg.Align, newTrees(cfg.Cache), logger)
	runner := pipeline.NewRunner(engine, cfg.Gold, logger)

	addr := cfg.Watch.MetricsAddr
	if watchMetricsAddr != "" {
		addr = watchMetricsAddr
	}
	if addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "addr", addr, "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("serving metrics", "addr", addr)
	}

	// A run failure must not end the watch: the file is often caught
	// mid-write, and the next event brings the complete version.
	run := func() {
		res, err := runner.RunFile(ctx, exportPath)
		if err != nil {
			logger.Error("run failed", "path", exportPath, "err", err)
			return
		}
		fmt.Print(res.Summary.Render())
	}

	run()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files on save, which would
	// silently drop a watch on the file itself.
	if err := watcher.Add(filepath.Dir(exportPath)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(exportPath), err)
	}
	logger.Info("watching export", "path", exportPath, "debounce", cfg.Watch.Debounce)

	var timerC <-chan time.Time
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			logger.Info("watch stopped")
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != exportPath {
				continue
			}
			if !ev.Op.Has(fsnotify.Write | fsnotify.Create | fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(cfg.Watch.Debounce)
				timerC = timer.C
			} else {
				timer.Reset(cfg.Watch.Debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch error", "err", err)

		case <-timerC:
			run()
		}
	}
}
