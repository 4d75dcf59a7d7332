package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/muhammadubaid182004/Weather-Station/internal/api"
	"github.com/muhammadubaid182004/Weather-Station/internal/config"
	"github.com/muhammadubaid182004/Weather-Station/internal/db"
	"github.com/muhammadubaid182004/Weather-Station/internal/events"
	"github.com/muhammadubaid182004/Weather-Station/internal/firmware"
	"github.com/muhammadubaid182004/Weather-Station/internal/registry"
	"github.com/muhammadubaid182004/Weather-Station/internal/telemetry"
	"github.com/muhammadubaid182004/Weather-Station/internal/update"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	slog.InfoContext(ctx, "Starting service...")

	cfg := config.Load()

	database, err := db.Init(ctx, db.Config{
		ConnString:     cfg.ConnString,
		MigrationsPath: cfg.MigrationsPath,
	})
	if err != nil {
		panic(err)
	}
	defer database.Close()

	var publisher telemetry.Publisher = events.Noop{}
	var relay *events.Relay
	wg := sync.WaitGroup{}
	if cfg.KafkaBrokers != "" {
		relay = events.New(events.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		publisher = relay
		wg.Add(1)
		go func() {
			defer wg.Done()
			relay.Run(ctx)
		}()
	}

	catalog, err := firmware.New(firmware.Config{
		DB:             database,
		Dir:            cfg.FirmwareDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if err != nil {
		panic(err)
	}

	a := api.New(api.Config{
		Telemetry: telemetry.New(telemetry.Config{
			DB:        database,
			Publisher: publisher,
		}),
		Firmware: catalog,
		Devices: registry.New(registry.Config{
			DB:            database,
			OnlineTimeout: cfg.OnlineTimeout,
		}),
		Updates: update.New(update.Config{
			Catalog: catalog,
		}),
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: a.Router(),
	}

	go func() {
		slog.InfoContext(ctx, "HTTP server listening", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.ErrorContext(ctx, "HTTP server error", "error", err)
			cancel()
		}
	}()

	select {
	case <-sigs:
		slog.InfoContext(ctx, "Shutdown signal received")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(ctx, "HTTP server shutdown error", "error", err)
	}

	cancel()
	wg.Wait()
	if relay != nil {
		relay.Close(ctx)
	}
}
