package main

import (
	"log/slog"

	"plantdx/pkg/config"
	"plantdx/pkg/history"
)

// initHistory opens the optional diagnosis history. Without DB_DSN the
// service keeps nothing between requests. A configured but unreachable
// database is logged and the service runs without history.
func initHistory(cfg config.DBConfig) *history.Store {
	if cfg.DSN == "" {
		slog.Info("DB_DSN not set; diagnosis history disabled")
		return nil
	}
	store, err := history.Open(cfg.DSN, cfg.AutoMigrate)
	if err != nil {
		slog.Warn("history store unavailable; continuing without it", "err", err)
		return nil
	}
	slog.Info("diagnosis history enabled", "auto_migrate", cfg.AutoMigrate)
	return store
}
