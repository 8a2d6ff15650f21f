package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rushteam/relaykit/api"
	"github.com/rushteam/relaykit/config"
	"github.com/rushteam/relaykit/engine"
	"github.com/rushteam/relaykit/snapshot"
)

func main() {
	configPath := flag.String("config", "configs/relaykit.yaml", "settings file (YAML or JSON)")
	flag.Parse()

	// Load configuration
	settings, err := config.LoadSettings(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx := context.Background()
	st, key, err := settings.OpenStore(ctx)
	if err != nil {
		log.Fatalf("Failed to open snapshot store: %v", err)
	}
	snap, err := snapshot.Load(ctx, st, key)
	st.Close()
	if err != nil {
		log.Fatalf("Failed to load snapshot: %v", err)
	}
	logger.Info("snapshot loaded", "relays", len(snap.Relays), "published", snap.RelaysPublished)

	e := engine.New(
		engine.WithThresholds(settings.Thresholds),
		engine.WithLogger(logger.With("component", "relaykit.engine")),
		engine.WithMaxConcurrent(settings.MaxConcurrent),
	)

	opts := []api.HandlerOption{
		api.WithDefaults(settings.Options()),
		api.WithLogger(logger.With("component", "relaykit.api")),
	}
	if !settings.Server.DisableMetrics {
		opts = append(opts, api.WithMetrics(api.NewMetrics()))
	}
	handler := api.NewHandler(e, snap, opts...)

	// Start HTTP server
	server := &http.Server{
		Addr:    settings.Server.ListenAddr,
		Handler: handler.Router(),
	}

	go func() {
		log.Printf("API server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", server.Addr, err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("API server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("API server exited.")
}
