package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"plantdx/pkg/advice"
	"plantdx/pkg/classifier"
	"plantdx/pkg/config"
	"plantdx/pkg/diagnose"
	"plantdx/pkg/logging"
	"plantdx/pkg/report"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	logging.Init(logging.ParseLevel(cfg.LogLevel))

	if err := run(cfg); err != nil {
		slog.Error("plantdx exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	if cfg.UsesDevSecret() {
		slog.Warn("PLANTDX_TOKEN_SECRET not set; report links use the development secret")
	}

	catalog, err := advice.Load(cfg.Advice.CatalogPath)
	if err != nil {
		return fmt.Errorf("load advice catalog: %w", err)
	}

	clf, closeClf, err := openClassifier(cfg.Classifier)
	if err != nil {
		return err
	}
	defer closeClf()

	bg, err := loadBackground(cfg.UI.BackgroundPath)
	if err != nil {
		slog.Warn("background image not loaded", "path", cfg.UI.BackgroundPath, "err", err)
	}

	store := initHistory(cfg.DB)
	defer store.Close()

	a := &app{
		svc:        diagnose.New(clf, catalog),
		renderer:   report.New(cfg.Report.FontPath),
		history:    store,
		secret:     cfg.Token.Secret,
		tokenTTL:   cfg.Token.TTL,
		maxUpload:  cfg.UI.MaxUploadBytes,
		background: bg,
	}

	r := gin.Default()
	r.MaxMultipartMemory = cfg.UI.MaxUploadBytes
	setupRoutes(r, a)

	srv := &http.Server{Addr: cfg.Addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("plantdx listening", "addr", cfg.Addr, "classifier", cfg.Classifier.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openClassifier builds the configured backend. The returned close func is
// always safe to call.
func openClassifier(cfg config.ClassifierConfig) (classifier.Classifier, func(), error) {
	switch cfg.Backend {
	case "remote":
		if cfg.RemoteURL == "" {
			return nil, nil, errors.New("PLANTDX_REMOTE_URL is required for the remote classifier")
		}
		return classifier.NewRemote(cfg.RemoteURL, cfg.RemoteTimeout), func() {}, nil
	case "onnx", "":
		m, err := classifier.LoadONNX(cfg.ModelPath, cfg.LibPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load model %s: %w", cfg.ModelPath, err)
		}
		slog.Info("model loaded", "path", cfg.ModelPath)
		return m, func() {
			if err := m.Close(); err != nil {
				slog.Warn("closing model", "err", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown classifier backend %q", cfg.Backend)
	}
}
