package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/tendant/chi-demo/app"
	"github.com/tendant/folio/pkg/folio/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		fmt.Fprintln(os.Stderr, config.Usage())
		os.Exit(1)
	}

	if cfg.Environment == "production" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}
	logger := slog.Default()

	comps, err := cfg.Build(context.Background(), logger)
	if err != nil {
		slog.Error("Failed to initialize folio", "err", err)
		os.Exit(1)
	}
	defer comps.Close()

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	Mount(server.R, cfg, comps)

	slog.Info("Folio starting",
		"environment", cfg.Environment,
		"db", cfg.DB.Type,
		"storage", cfg.Storage.Type,
		"auth", !cfg.Auth.Disabled,
		"metrics", cfg.MetricsEnabled,
	)
	server.Run()
}
