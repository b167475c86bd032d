package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"plantdx/pkg/advice"
	"plantdx/pkg/classifier"
	"plantdx/pkg/config"
	"plantdx/pkg/diagnose"
	"plantdx/pkg/history"
	"plantdx/pkg/logging"
	"plantdx/pkg/report"
	"plantdx/process/watch"
)

func main() {
	dir := flag.String("dir", "leaves", "directory of leaf images")
	scan := flag.Bool("scan", true, "process images already in the directory")
	watchDir := flag.Bool("watch", false, "keep watching for new images (Ctrl+C to exit)")
	workers := flag.Int("workers", runtime.NumCPU(), "number of concurrent diagnoses")
	flag.Parse()

	config.LoadDotEnv()
	cfg := config.Load()
	logging.Init(logging.ParseLevel(cfg.LogLevel))

	if err := run(cfg, *dir, watch.Options{Workers: *workers, Scan: *scan, Watch: *watchDir}); err != nil {
		fmt.Fprintf(os.Stderr, "watch failed: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, dir string, opts watch.Options) error {
	catalog, err := advice.Load(cfg.Advice.CatalogPath)
	if err != nil {
		return err
	}

	var clf classifier.Classifier
	switch cfg.Classifier.Backend {
	case "remote":
		clf = classifier.NewRemote(cfg.Classifier.RemoteURL, cfg.Classifier.RemoteTimeout)
	default:
		m, err := classifier.LoadONNX(cfg.Classifier.ModelPath, cfg.Classifier.LibPath)
		if err != nil {
			return err
		}
		defer m.Close()
		clf = m
	}

	var store *history.Store
	if cfg.DB.DSN != "" {
		if store, err = history.Open(cfg.DB.DSN, cfg.DB.AutoMigrate); err != nil {
			slog.Warn("history store unavailable; continuing without it", "err", err)
		}
		defer store.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := &watch.Processor{
		Svc:      diagnose.New(clf, catalog),
		Renderer: report.New(cfg.Report.FontPath),
		History:  store,
	}
	return p.Run(ctx, dir, opts)
}
