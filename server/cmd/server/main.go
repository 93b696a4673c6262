package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hostwatch/hostwatch/server/internal/api"
	"github.com/hostwatch/hostwatch/server/internal/config"
	"github.com/hostwatch/hostwatch/server/internal/hub"
	"github.com/hostwatch/hostwatch/server/internal/sampler"
	"github.com/hostwatch/hostwatch/server/internal/static"
	"github.com/hostwatch/hostwatch/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to config file; empty uses built-in defaults")
	flag.Parse()

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("hostwatch-server starting", "config", *configPath)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load config", "err", err)
			os.Exit(1)
		}
	}
	level.Set(cfg.Server.Level())

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"static_dir", cfg.Server.StaticDir,
		"sample_interval", cfg.Server.SampleInterval,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Broadcast hub shared by the sampler (producer) and every /sync client.
	h := hub.New()

	// Sampler on its own OS thread; publishes to the hub whether or not
	// anyone is subscribed.
	smp := sampler.New(sampler.NewHostSource(), h, cfg.Server.SampleInterval)
	go smp.Run(ctx)

	if *configPath != "" {
		go func() {
			if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
				smp.SetInterval(updated.Server.SampleInterval)
				level.Set(updated.Server.Level())
				slog.Info("config hot-reloaded",
					"sample_interval", smp.Interval(),
					"log_level", updated.Server.Level().String(),
				)
			}); err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	apiHandler := api.New(h, smp)

	mux := http.NewServeMux()
	mux.Handle("/sync", ws.New(h))
	mux.Handle("/ping", apiHandler)
	mux.Handle("/metrics", apiHandler)
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", static.New(static.FS(cfg.Server.StaticDir)))

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("hostwatch-server shutting down")

	// Closing the hub ends every relay loop with a going-away frame.
	h.Close()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	srv.Shutdown(shutdownCtx) //nolint:errcheck
}
